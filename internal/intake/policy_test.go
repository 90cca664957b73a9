package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveState(t *testing.T) {
	named := CustomerProfile{Name: "Priya", Email: "priya@test.com"}

	tests := []struct {
		name string
		in   TurnInput
		want DialogueState
	}{
		{"greeting on first turn", TurnInput{Utterance: "hello", Turn: 1}, StateGreeting},
		{"help request counts as greeting", TurnInput{Utterance: "I need help", Turn: 2}, StateGreeting},
		{"greeting window closes", TurnInput{Utterance: "hello", Turn: 3}, StateCollectName},
		{"greeting with data is not a greeting",
			TurnInput{Utterance: "hi I'm Priya", Turn: 1, Partial: PartialProfile{Name: "Priya"}, Profile: CustomerProfile{Name: "Priya"}},
			StateCollectEmail},
		{"name missing", TurnInput{Utterance: "ok", Turn: 1}, StateCollectName},
		{"email missing", TurnInput{Utterance: "ok", Turn: 2, Profile: CustomerProfile{Name: "Priya"}}, StateCollectEmail},
		{"owner skips classification",
			TurnInput{Utterance: "ok", Turn: 3, Profile: CustomerProfile{Name: "Priya", Email: "p@t.co", IssueType: IssuePayment}, Role: RolePropertyOwner},
			StateRoleHelp},
		{"issue known",
			TurnInput{Utterance: "ok", Turn: 3, Profile: CustomerProfile{Name: "Priya", Email: "p@t.co", IssueType: IssueBooking}},
			StateIssueHelp},
		{"frustration", TurnInput{Utterance: "this is ridiculous", Turn: 3, Profile: named}, StateFallback},
		{"category prompt already shown",
			TurnInput{Utterance: "ok", Turn: 4, Profile: named, LastSystem: "Tell me about the problem or " + classifyMarker + "."},
			StateFallback},
		{"classify", TurnInput{Utterance: "ok", Turn: 3, Profile: named}, StateClassifyIssue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.in))
		})
	}
}

func TestRespondGreetingByRole(t *testing.T) {
	customer := Respond(TurnInput{Utterance: "hi", Turn: 1, Role: RoleCustomer})
	assert.Equal(t, StateGreeting, customer.State)
	assert.Contains(t, customer.Text, "may I have your name")
	assert.Equal(t, categoryActions, customer.Actions)

	owner := Respond(TurnInput{Utterance: "hi", Turn: 1, Role: RolePropertyOwner})
	assert.Contains(t, owner.Text, "for hosts")
	assert.Equal(t, ownerMenuActions, owner.Actions)
}

func TestRespondAcknowledgesNewFields(t *testing.T) {
	in := TurnInput{
		Utterance: "I'm Priya, priya@test.com",
		Turn:      1,
		Partial:   PartialProfile{Name: "Priya", Email: "priya@test.com"},
		Profile:   CustomerProfile{Name: "Priya", Email: "priya@test.com"},
	}
	r := Respond(in)
	assert.Equal(t, StateClassifyIssue, r.State)
	assert.Contains(t, r.Text, "Nice to meet you, Priya!")
	assert.Contains(t, r.Text, "priya@test.com")
	assert.Contains(t, r.Text, classifyMarker)
}

func TestRespondCollectNameMentionsKnownIssue(t *testing.T) {
	r := Respond(TurnInput{Utterance: "refund please", Turn: 3, Profile: CustomerProfile{IssueType: IssuePayment}})
	assert.Equal(t, StateCollectName, r.State)
	assert.Contains(t, r.Text, "payment issue")
	assert.Contains(t, r.Text, "your name")
}

func TestIssueHelpAsksForMissingReference(t *testing.T) {
	base := CustomerProfile{Name: "Priya", Email: "p@t.co", IssueType: IssueBooking}

	r := Respond(TurnInput{Utterance: "it's about my booking", Turn: 3, Profile: base})
	assert.Equal(t, StateIssueHelp, r.State)
	assert.Contains(t, r.Text, "booking reference")

	base.BookingReference = "BK123456"
	r = Respond(TurnInput{Utterance: "I want to cancel", Turn: 4, Profile: base})
	assert.Contains(t, r.Text, "BK123456")
	assert.Contains(t, r.Actions, "Yes, cancel it")

	r = Respond(TurnInput{Utterance: "can I change the dates", Turn: 5, Profile: base})
	assert.Contains(t, r.Actions, "Change dates")
}

func TestIssueHelpPerCategory(t *testing.T) {
	named := CustomerProfile{Name: "Priya", Email: "p@t.co"}

	payment := named
	payment.IssueType = IssuePayment
	r := Respond(TurnInput{Utterance: "where is my refund", Turn: 3, Profile: payment})
	assert.Contains(t, r.Text, "refund")
	assert.Contains(t, r.Text, "booking reference")

	property := named
	property.IssueType = IssueProperty
	r = Respond(TurnInput{Utterance: "question about the property", Turn: 3, Profile: property})
	assert.Contains(t, r.Text, "Which property")
	property.Location = "Goa"
	r = Respond(TurnInput{Utterance: "wifi?", Turn: 4, Profile: property})
	assert.Contains(t, r.Text, "your stay in Goa")

	account := named
	account.IssueType = IssueAccount
	r = Respond(TurnInput{Utterance: "I forgot my password", Turn: 3, Profile: account})
	assert.Contains(t, r.Text, "p@t.co")
}

func TestOwnerHelpRoutesOnKeywords(t *testing.T) {
	owner := CustomerProfile{Name: "Vikram", Email: "v@host.in"}
	tests := []struct {
		utterance string
		action    string
	}{
		{"I want to update my listing photos", "Update listing details"},
		{"a guest wants to check-in early", "Message a guest"},
		{"when is my next payout", "Payout schedule"},
	}
	for _, tt := range tests {
		r := Respond(TurnInput{Utterance: tt.utterance, Turn: 4, Profile: owner, Role: RolePropertyOwner})
		assert.Equal(t, StateRoleHelp, r.State, tt.utterance)
		assert.Contains(t, r.Actions, tt.action, tt.utterance)
	}

	r := Respond(TurnInput{Utterance: "ok", Turn: 4, Profile: owner, Role: RolePropertyOwner})
	assert.Contains(t, r.Text, "Vikram")
	assert.Equal(t, ownerMenuActions, r.Actions)
}

func TestFallbackAcknowledgesUrgency(t *testing.T) {
	p := CustomerProfile{Name: "Priya", Email: "p@t.co", Urgency: UrgencyHigh}
	r := Respond(TurnInput{Utterance: "this is urgent", Turn: 3, Profile: p})
	assert.Equal(t, StateFallback, r.State)
	assert.Contains(t, r.Text, "I understand this is urgent, Priya")
}

func TestReplyForUnhandledStateStillHelps(t *testing.T) {
	r := replyFor(DialogueState("unknown"), TurnInput{Utterance: "??", Turn: 4})
	assert.Contains(t, r.Text, "I'm here to help")
	assert.Equal(t, categoryActions, r.Actions)
}

func TestRespondReturnsOwnActions(t *testing.T) {
	r := Respond(TurnInput{Utterance: "hello", Turn: 1})
	assert.Equal(t, StateGreeting, r.State)
	r.Actions[0] = "changed"
	assert.Equal(t, "Booking help", categoryActions[0])
}
