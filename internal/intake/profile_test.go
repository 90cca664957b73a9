package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeKeepsPopulatedFields(t *testing.T) {
	current := CustomerProfile{Name: "Priya", Email: "priya@test.com", IssueType: IssuePayment}

	next := Merge(current, PartialProfile{BookingReference: "BK123456"})
	assert.Equal(t, "Priya", next.Name)
	assert.Equal(t, "priya@test.com", next.Email)
	assert.Equal(t, IssuePayment, next.IssueType)
	assert.Equal(t, "BK123456", next.BookingReference)

	// current is never mutated
	assert.Empty(t, current.BookingReference)

	unchanged := Merge(next, PartialProfile{})
	assert.Equal(t, next, unchanged)
}

func TestMergeNewerValueWins(t *testing.T) {
	current := CustomerProfile{Email: "old@example.com", Urgency: UrgencyMedium}
	next := Merge(current, PartialProfile{Email: "new@example.com", Urgency: UrgencyHigh})
	assert.Equal(t, "new@example.com", next.Email)
	assert.Equal(t, UrgencyHigh, next.Urgency)
}

func TestMergeSequenceIsMonotonic(t *testing.T) {
	var p CustomerProfile
	for _, u := range []string{
		"hi there",
		"I'm Priya",
		"ok",
		"my email is priya@test.com",
		"thanks",
		"it's about my booking BK998877",
		"hmm, what now?",
	} {
		before := p
		p = Merge(p, Extract(u))
		if before.Name != "" {
			assert.NotEmpty(t, p.Name, u)
		}
		if before.Email != "" {
			assert.NotEmpty(t, p.Email, u)
		}
		if before.BookingReference != "" {
			assert.NotEmpty(t, p.BookingReference, u)
		}
	}
	assert.Equal(t, "Priya", p.Name)
	assert.Equal(t, "priya@test.com", p.Email)
	assert.Equal(t, IssueBooking, p.IssueType)
	assert.Equal(t, "BK998877", p.BookingReference)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name    string
		profile CustomerProfile
		want    int
	}{
		{"empty", CustomerProfile{}, 0},
		{"name and email", CustomerProfile{Name: "A B", Email: "a@b.co"}, 40},
		{"location and urgency do not count", CustomerProfile{Location: "Goa", Urgency: UrgencyHigh}, 0},
		{"all weighted fields", CustomerProfile{
			Name: "Priya", Email: "p@t.co", Phone: "9876543210", IssueType: IssueBooking, BookingReference: "BK123456",
		}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.profile))
		})
	}
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Rahul", CustomerProfile{Name: "Rahul Sharma"}.FirstName())
	assert.Equal(t, "Priya", CustomerProfile{Name: "Priya"}.FirstName())
	assert.Equal(t, "", CustomerProfile{}.FirstName())
}
