package intake

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// DialogueState is derived on every turn from which profile fields are
// populated. It is never stored, so replaying a message log from an empty
// profile walks through the same states.
type DialogueState string

const (
	StateGreeting      DialogueState = "greeting"
	StateCollectName   DialogueState = "collect_name"
	StateCollectEmail  DialogueState = "collect_email"
	StateClassifyIssue DialogueState = "classify_issue"
	StateIssueHelp     DialogueState = "issue_help"
	StateRoleHelp      DialogueState = "role_help"
	StateFallback      DialogueState = "fallback"
)

// greetingMaxTurn is the last turn on which a bare greeting gets the welcome menu.
const greetingMaxTurn = 2

var (
	greetingRE    = regexp.MustCompile(`(?i)\b(hi+|hello|hey|hiya|namaste|good\s+(?:morning|afternoon|evening)|help|support|assist(?:ance)?)\b`)
	frustrationRE = regexp.MustCompile(`(?i)\b(urgent|urgently|emergency|asap|immediately|frustrat\w*|angry|annoyed|upset|terrible|horrible|worst|unacceptable|ridiculous|disappointed|useless|still waiting|not working)\b`)
)

// classifyMarker appears in the category prompt; a repeat of that prompt is
// avoided by falling back instead.
const classifyMarker = "choose one of the options below"

var (
	categoryActions  = actions("Booking help", "Payment or refund", "Property question", "Account or login")
	escalatedActions = actions("Talk to a person")
)

// quickReplies holds every suggested-action label, lower-cased. Tapping one
// sends the label back as the next utterance.
var quickReplies = map[string]bool{}

func actions(labels ...string) []string {
	for _, label := range labels {
		quickReplies[strings.ToLower(label)] = true
	}
	return labels
}

// TurnInput is everything the policy looks at for one turn.
type TurnInput struct {
	Utterance  string
	Partial    PartialProfile  // extracted from this utterance only
	Profile    CustomerProfile // after merging Partial
	Role       Role
	Turn       int    // user turns including this one
	LastSystem string // previous system reply, "" on the first turn
}

// Reply is the policy's decision for one turn.
type Reply struct {
	State   DialogueState
	Text    string
	Actions []string
}

// DeriveState applies the data-collection order:
//
//	greeting       turn <= 2, greeting/help keyword, nothing extracted this turn
//	collect_name   name unset
//	collect_email  email unset
//	role_help      property owner (replaces classify/issue help entirely)
//	issue_help     issue type set
//	fallback       urgency/frustration, or the category prompt was already shown
//	classify_issue otherwise
func DeriveState(in TurnInput) DialogueState {
	switch {
	case in.Turn <= greetingMaxTurn && in.Partial.IsEmpty() && greetingRE.MatchString(in.Utterance):
		return StateGreeting
	case in.Profile.Name == "":
		return StateCollectName
	case in.Profile.Email == "":
		return StateCollectEmail
	case in.Role == RolePropertyOwner:
		return StateRoleHelp
	case in.Profile.IssueType != "":
		return StateIssueHelp
	case frustrationRE.MatchString(in.Utterance) || strings.Contains(in.LastSystem, classifyMarker):
		return StateFallback
	default:
		return StateClassifyIssue
	}
}

// Respond produces the reply for the derived state.
func Respond(in TurnInput) Reply {
	state := DeriveState(in)
	r := replyFor(state, in)
	r.State = state
	r.Actions = slices.Clone(r.Actions)
	return r
}

// replyFor never fails a turn: a state without a handler still gets a
// generic prompt.
func replyFor(state DialogueState, in TurnInput) Reply {
	switch state {
	case StateGreeting:
		return greetingReply(in)
	case StateCollectName:
		return collectNameReply(in)
	case StateCollectEmail:
		return collectEmailReply(in)
	case StateClassifyIssue:
		return classifyIssueReply(in)
	case StateIssueHelp:
		return issueHelpReply(in)
	case StateRoleHelp:
		return ownerHelpReply(in)
	case StateFallback:
		return fallbackReply(in)
	default:
		return Reply{
			Text:    "I'm here to help. Could you tell me a little more about what you need?",
			Actions: categoryActions,
		}
	}
}

func acknowledgement(in TurnInput) string {
	var parts []string
	if in.Partial.Name != "" {
		parts = append(parts, fmt.Sprintf("Nice to meet you, %s!", in.Profile.FirstName()))
	}
	if in.Partial.Email != "" {
		parts = append(parts, fmt.Sprintf("Thanks, I've noted your email as %s.", in.Profile.Email))
	}
	return strings.Join(parts, " ")
}

func withAck(in TurnInput, text string) string {
	if ack := acknowledgement(in); ack != "" {
		return ack + " " + text
	}
	return text
}

func greetingReply(in TurnInput) Reply {
	ask := "To get started, may I have your name?"
	if in.Profile.Name != "" {
		ask = fmt.Sprintf("How can I help you today, %s?", in.Profile.FirstName())
	}
	if in.Role == RolePropertyOwner {
		return Reply{
			Text: "Welcome to StayDesk for hosts! I can help you manage your properties, " +
				"handle guest bookings, and review your earnings and payouts. " + ask,
			Actions: ownerMenuActions,
		}
	}
	return Reply{
		Text: "Hello! Welcome to StayDesk support. I can help with bookings and reservations, " +
			"payments and refunds, property questions, and account or login issues. " + ask,
		Actions: categoryActions,
	}
}

func collectNameReply(in TurnInput) Reply {
	var sb strings.Builder
	if in.Partial.Email != "" {
		sb.WriteString(fmt.Sprintf("Thanks, I've noted your email as %s. ", in.Profile.Email))
	}
	if in.Profile.IssueType != "" {
		sb.WriteString(fmt.Sprintf("I can definitely help with your %s issue. ", in.Profile.IssueType))
	}
	sb.WriteString("Before we continue, could you please tell me your name?")
	return Reply{Text: sb.String()}
}

func collectEmailReply(in TurnInput) Reply {
	return Reply{Text: withAck(in, "What's the best email address to reach you at, so I can send you updates on this request?")}
}

func classifyIssueReply(in TurnInput) Reply {
	text := fmt.Sprintf("What can I help you with today, %s? Tell me about the problem or %s.",
		in.Profile.FirstName(), classifyMarker)
	return Reply{Text: withAck(in, text), Actions: categoryActions}
}

func fallbackReply(in TurnInput) Reply {
	first := in.Profile.FirstName()
	if frustrationRE.MatchString(in.Utterance) {
		lead := "I understand this is frustrating"
		if in.Profile.Urgency == UrgencyHigh {
			lead = "I understand this is urgent"
		}
		if first != "" {
			lead += ", " + first
		}
		return Reply{
			Text: withAck(in, lead+". I'm prioritising your request. Could you describe exactly what happened "+
				"so I can get it sorted as quickly as possible?"),
			Actions: escalatedActions,
		}
	}
	thanks := "Thanks"
	if first != "" {
		thanks += ", " + first
	}
	return Reply{
		Text:    withAck(in, thanks+". Could you tell me a bit more about what you need help with?"),
		Actions: categoryActions,
	}
}
