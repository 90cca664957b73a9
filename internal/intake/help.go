package intake

import (
	"fmt"
	"regexp"
)

var (
	cancelRE   = regexp.MustCompile(`(?i)\b(cancel\w*)\b`)
	modifyRE   = regexp.MustCompile(`(?i)\b(modify|change|reschedule|extend|shorten|dates?)\b`)
	refundRE   = regexp.MustCompile(`(?i)\b(refund\w*|money back)\b`)
	wrongPayRE = regexp.MustCompile(`(?i)\b(twice|double|wrong|extra|overcharged?|failed|declined|deducted)\b`)
	passwordRE = regexp.MustCompile(`(?i)\b(password|forgot|reset)\b`)
	loginRE    = regexp.MustCompile(`(?i)\b(log\s*in|login|sign\s*in|locked|otp)\b`)
)

// Quick-reply menus offered with each reply.
var (
	bookingRefActions    = actions("I don't have it", "Find my booking by email")
	cancelActions        = actions("Yes, cancel it", "Keep my booking")
	modifyActions        = actions("Change dates", "Change number of guests")
	bookingNextActions   = actions("Check booking status", "Change dates", "Cancel booking", "Contact the host")
	paymentRefActions    = actions("I don't have it")
	refundActions        = actions("Check refund status", "Raise refund request")
	wrongChargeActions   = actions("Report a wrong charge")
	paymentNextActions   = actions("Check payment status", "Download invoice", "Report a wrong charge", "Refund request")
	propertyRefActions   = actions("Share booking reference")
	propertyNextActions  = actions("Check-in instructions", "Amenities", "Directions", "Report a problem at the property")
	passwordActions      = actions("Resend reset link", "I no longer use that email")
	loginActions         = actions("Error message", "Code not arriving", "Account locked")
	accountActions       = actions("Reset password", "Update contact details", "Delete account")
	ownerPropertyActions = actions("Add a new property", "Update listing details", "Update availability calendar", "Change pricing")
	ownerBookingActions  = actions("View upcoming bookings", "Accept or decline requests", "Message a guest", "Handle a cancellation")
	ownerEarningsActions = actions("View earnings summary", "Payout schedule", "Update bank details", "Download statements")
	ownerMenuActions     = actions("Manage properties", "Manage bookings", "View earnings")
)

// issueHelpReply dispatches on the issue category. Each handler asks the one
// missing detail it needs, otherwise proposes concrete next actions.
func issueHelpReply(in TurnInput) Reply {
	var r Reply
	switch in.Profile.IssueType {
	case IssueBooking:
		r = bookingHelp(in)
	case IssuePayment:
		r = paymentHelp(in)
	case IssueProperty:
		r = propertyHelp(in)
	default:
		r = accountHelp(in)
	}
	r.Text = withAck(in, r.Text)
	return r
}

func bookingHelp(in TurnInput) Reply {
	ref := in.Profile.BookingReference
	if ref == "" {
		return Reply{
			Text: "I can help with your booking. Could you share your booking reference? " +
				"It's the code in your confirmation email, for example BK123456.",
			Actions: bookingRefActions,
		}
	}
	switch {
	case cancelRE.MatchString(in.Utterance):
		return Reply{
			Text: fmt.Sprintf("I've got booking %s. Cancellations made more than 48 hours before check-in "+
				"are refunded in full; later cancellations follow the property's policy. "+
				"Would you like me to raise a cancellation request?", ref),
			Actions: cancelActions,
		}
	case modifyRE.MatchString(in.Utterance):
		return Reply{
			Text: fmt.Sprintf("Sure, let's update booking %s. Which new check-in and check-out dates "+
				"would you like? I'll check availability with the host.", ref),
			Actions: modifyActions,
		}
	default:
		return Reply{
			Text:    fmt.Sprintf("Thanks, I have booking %s. Here's what I can do for you next:", ref),
			Actions: bookingNextActions,
		}
	}
}

func paymentHelp(in TurnInput) Reply {
	ref := in.Profile.BookingReference
	if ref == "" {
		lead := "I can help with your payment."
		if refundRE.MatchString(in.Utterance) {
			lead = "I'm sorry for the trouble with your refund."
		}
		return Reply{
			Text:    lead + " Could you share the booking reference the payment was made for, so I can locate the transaction?",
			Actions: paymentRefActions,
		}
	}
	switch {
	case refundRE.MatchString(in.Utterance):
		return Reply{
			Text: fmt.Sprintf("For booking %s, approved refunds go back to the original payment method "+
				"within 5-7 business days. I can check the current status or raise a refund request.", ref),
			Actions: refundActions,
		}
	case wrongPayRE.MatchString(in.Utterance):
		return Reply{
			Text: fmt.Sprintf("I'm sorry about that. I'll flag the charge on booking %s for our payments team "+
				"to verify. Could you tell me the amount and the date it was deducted?", ref),
			Actions: wrongChargeActions,
		}
	default:
		return Reply{
			Text:    fmt.Sprintf("I have booking %s. What would you like to do about the payment?", ref),
			Actions: paymentNextActions,
		}
	}
}

func propertyHelp(in TurnInput) Reply {
	if in.Profile.Location == "" && in.Profile.BookingReference == "" {
		return Reply{
			Text:    "Which property is this about? The location or your booking reference is enough for me to find it.",
			Actions: propertyRefActions,
		}
	}
	where := "your stay"
	if in.Profile.Location != "" {
		where = "your stay in " + in.Profile.Location
	}
	return Reply{
		Text:    fmt.Sprintf("For %s I can help with any of the following:", where),
		Actions: propertyNextActions,
	}
}

func accountHelp(in TurnInput) Reply {
	switch {
	case passwordRE.MatchString(in.Utterance):
		return Reply{
			Text: fmt.Sprintf("To reset your password, tap \"Forgot password\" on the login screen. "+
				"We'll send a reset link to %s. Did that work for you?", in.Profile.Email),
			Actions: passwordActions,
		}
	case loginRE.MatchString(in.Utterance):
		return Reply{
			Text: "Sorry you're having trouble signing in. Are you seeing an error message, " +
				"or is the verification code not arriving?",
			Actions: loginActions,
		}
	default:
		return Reply{
			Text:    "I can help with your account. What would you like to do?",
			Actions: accountActions,
		}
	}
}

var (
	ownerPropertyRE = regexp.MustCompile(`(?i)\b(propert(?:y|ies)|listings?|calendar|availability|photos?|amenities|pricing|price|rates?)\b`)
	ownerBookingRE  = regexp.MustCompile(`(?i)\b(bookings?|reservations?|guests?|check-?in|cancel\w*)\b`)
	ownerEarningsRE = regexp.MustCompile(`(?i)\b(earnings?|payouts?|revenue|income|commission|payments?|invoices?)\b`)
)

// ownerHelpReply serves property owners. It replaces issue classification
// for them and routes on keywords of the current utterance.
func ownerHelpReply(in TurnInput) Reply {
	var r Reply
	switch {
	case ownerPropertyRE.MatchString(in.Utterance):
		r = Reply{
			Text:    "Here's what I can help you with for your properties:",
			Actions: ownerPropertyActions,
		}
	case ownerBookingRE.MatchString(in.Utterance):
		r = Reply{
			Text:    "Here's what I can help you with for your bookings:",
			Actions: ownerBookingActions,
		}
	case ownerEarningsRE.MatchString(in.Utterance):
		r = Reply{
			Text:    "Here's what I can help you with for your earnings:",
			Actions: ownerEarningsActions,
		}
	default:
		name := in.Profile.FirstName()
		text := "What would you like to work on today? You can manage your properties, your bookings, or your earnings."
		if name != "" {
			text = fmt.Sprintf("What would you like to work on today, %s? You can manage your properties, your bookings, or your earnings.", name)
		}
		r = Reply{Text: text, Actions: ownerMenuActions}
	}
	r.Text = withAck(in, r.Text)
	return r
}
