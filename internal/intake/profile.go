package intake

// Merge returns a new profile with every non-empty field of partial applied on
// top of current. Fields absent from partial are carried over, so a populated
// field can only ever be replaced by a newer value for the same field.
func Merge(current CustomerProfile, partial PartialProfile) CustomerProfile {
	next := current
	if partial.Name != "" {
		next.Name = partial.Name
	}
	if partial.Email != "" {
		next.Email = partial.Email
	}
	if partial.Phone != "" {
		next.Phone = partial.Phone
	}
	if partial.Location != "" {
		next.Location = partial.Location
	}
	if partial.IssueType != "" {
		next.IssueType = partial.IssueType
	}
	if partial.BookingReference != "" {
		next.BookingReference = partial.BookingReference
	}
	if partial.Urgency != "" {
		next.Urgency = partial.Urgency
	}
	if partial.PreferredContact != "" {
		next.PreferredContact = partial.PreferredContact
	}
	return next
}

// Confidence weights, capped at 100 in total.
const (
	weightName             = 20
	weightEmail            = 20
	weightPhone            = 15
	weightIssueType        = 25
	weightBookingReference = 20
	maxConfidence          = 100
)

// Confidence scores how complete the profile is (0-100). It is reported with
// every reply for observability and never influences the dialogue.
func Confidence(p CustomerProfile) int {
	score := 0
	if p.Name != "" {
		score += weightName
	}
	if p.Email != "" {
		score += weightEmail
	}
	if p.Phone != "" {
		score += weightPhone
	}
	if p.IssueType != "" {
		score += weightIssueType
	}
	if p.BookingReference != "" {
		score += weightBookingReference
	}
	return min(score, maxConfidence)
}

// FirstName returns the first word of the profile name, or "".
func (p CustomerProfile) FirstName() string {
	for i, r := range p.Name {
		if r == ' ' {
			return p.Name[:i]
		}
	}
	return p.Name
}
