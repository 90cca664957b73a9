package intake

const (
	// longConversationTurns is the last turn handled without a human.
	longConversationTurns = 10
	// complexCaseTurns is how long a referenced booking issue may run unresolved.
	complexCaseTurns = 5
)

// Evaluate decides whether the conversation needs a human. Rules are checked
// in order and the first match wins:
//
//  1. operator already joined: yield, the engine must not reply at all
//  2. high urgency
//  3. more than ten user turns
//  4. booking issue with a reference still open after five turns
func Evaluate(p CustomerProfile, turnCount int, operatorJoined bool) EscalationSignal {
	switch {
	case operatorJoined:
		return EscalationSignal{ShouldEscalate: true, Reason: ReasonOperatorTakeover, Yield: true}
	case p.Urgency == UrgencyHigh:
		return EscalationSignal{ShouldEscalate: true, Reason: ReasonHighUrgency}
	case turnCount > longConversationTurns:
		return EscalationSignal{ShouldEscalate: true, Reason: ReasonLongConversation}
	case p.IssueType == IssueBooking && p.BookingReference != "" && turnCount > complexCaseTurns:
		return EscalationSignal{ShouldEscalate: true, Reason: ReasonUnresolvedComplexCase}
	default:
		return EscalationSignal{}
	}
}

// Priority maps an escalation reason to the support queue priority.
func (s EscalationSignal) Priority() string {
	switch s.Reason {
	case ReasonHighUrgency:
		return "HIGH"
	case ReasonUnresolvedComplexCase:
		return "MEDIUM"
	case ReasonLongConversation:
		return "LOW"
	default:
		return "NONE"
	}
}
