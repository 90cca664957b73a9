package intake

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// extractRule is one ordered entry of a field's rule table. The first capture
// group of pattern is handed to accept, which normalizes and validates it.
// The first rule whose accept returns true wins.
type extractRule struct {
	name    string
	pattern *regexp.Regexp
	accept  func(candidate string) (string, bool)
}

func firstMatch(rules []extractRule, text string) string {
	for _, rule := range rules {
		for _, m := range rule.pattern.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if value, ok := rule.accept(m[1]); ok {
				return value
			}
		}
	}
	return ""
}

var textNormalizer = strings.NewReplacer(
	"\u2019", "'", // right single quote
	"\u2018", "'", // left single quote
	"\u2032", "'", // prime
	"\u00a0", " ",
)

// Extract scans one utterance for every profile field. It is pure: the caller
// merges the result into the session profile.
func Extract(utterance string) PartialProfile {
	return extract(utterance, true)
}

// ExtractFor is Extract in the context of what is already known. Once a name
// is on file, a short standalone reply ("Change dates", "Pune") answers the
// last question and is not read as a name; introductions still override.
func ExtractFor(utterance string, known CustomerProfile) PartialProfile {
	return extract(utterance, known.Name == "")
}

func extract(utterance string, allowBareName bool) PartialProfile {
	text := strings.TrimSpace(textNormalizer.Replace(utterance))
	if text == "" {
		return PartialProfile{}
	}
	name := firstMatch(nameRules, text)
	if name == "" && allowBareName {
		name = firstMatch(bareNameRules, text)
	}
	return PartialProfile{
		Name:             name,
		Email:            firstMatch(emailRules, text),
		Phone:            firstMatch(phoneRules, text),
		Location:         firstMatch(locationRules, text),
		IssueType:        IssueType(firstMatch(issueRules, text)),
		BookingReference: firstMatch(bookingRefRules, text),
		Urgency:          Urgency(firstMatch(urgencyRules, text)),
		PreferredContact: ContactMethod(firstMatch(contactRules, text)),
	}
}

// ---------- name ----------

const nameWordPattern = `[\p{L}][\p{L}\p{M}'-]*`

var namePhrasePattern = nameWordPattern + `(?:[ \t]+` + nameWordPattern + `){0,2}`

var nameRules = []extractRule{
	{"my name is", regexp.MustCompile(`(?i)\bmy name is\s+(` + namePhrasePattern + `)`), acceptName},
	{"i'm", regexp.MustCompile(`(?i)\bi'?m\s+(` + namePhrasePattern + `)`), acceptName},
	{"i am", regexp.MustCompile(`(?i)\bi am\s+(` + namePhrasePattern + `)`), acceptName},
	{"this is", regexp.MustCompile(`(?i)\bthis is\s+(` + namePhrasePattern + `)`), acceptName},
	{"call me", regexp.MustCompile(`(?i)\bcall me\s+(` + namePhrasePattern + `)`), acceptName},
}

// bareNameRules accept a short standalone reply as a name, e.g. "Priya".
var bareNameRules = []extractRule{
	{"bare", regexp.MustCompile(`^\s*(` + namePhrasePattern + `)\s*[.!]?\s*$`), acceptBareName},
}

const (
	minNameLen = 2
	maxNameLen = 49
)

// nameTerminators end a name phrase without disqualifying what came before,
// e.g. "Priya and I need help" keeps "Priya".
var nameTerminators = wordSet(
	"and", "with", "from", "here", "but", "for", "to", "in", "at", "of", "on",
	"by", "my", "the", "a", "an", "i", "is", "was", "who", "please", "thanks",
	"thank", "also", "again", "too", "calling", "writing", "reaching", "speaking",
)

// nameStopWords disqualify a candidate outright. They catch issue descriptions
// that happen to follow an introduction phrasing ("I'm having a booking problem").
var nameStopWords = wordSet(
	"help", "helps", "support", "booking", "bookings", "book", "booked",
	"reservation", "reservations", "reserve", "payment", "payments", "pay",
	"paid", "refund", "refunds", "charge", "charged", "property", "properties",
	"location", "venue", "account", "login", "password", "issue", "issues",
	"problem", "problems", "query", "question", "complaint", "urgent",
	"emergency", "asap", "soon", "today", "tomorrow", "hi", "hello", "hey",
	"hii", "namaste", "ok", "okay", "yes", "no", "yeah", "sure", "fine", "good",
	"great", "not", "having", "facing", "looking", "trying", "unable",
	"regarding", "about", "interested", "wondering", "asking", "checking",
	"getting", "there", "new", "owner", "host", "guest", "customer", "user",
	"just", "still", "waiting", "really", "very", "so", "sorry", "stuck",
	"confused", "frustrated", "angry", "upset", "going", "back", "done",
	"available", "listing", "calendar", "earnings", "payout", "order",
	"reference", "cancel", "cancellation", "email", "phone", "number",
	"contact", "chat", "want", "need", "have", "has", "had", "can", "could",
	"would", "will", "should", "tell", "me", "more", "what", "when", "where",
	"why", "how", "which", "you", "your", "we", "our", "it", "its", "am", "are",
	"were", "be", "this", "that", "or", "morning", "evening", "afternoon",
	"glad", "happy", "fed", "tired", "unhappy", "disappointed", "terrible",
	"horrible", "awful", "bad", "wrong", "broken", "ridiculous", "useless",
	"unacceptable", "serious", "important", "weird", "strange",
	"i'm", "im", "i've", "ive", "i'd", "i'll", "it's", "that's", "there's",
	"we're", "you're", "they're", "he", "she", "they", "them", "us", "him",
	"her", "myself",
)

func acceptName(candidate string) (string, bool) {
	words := strings.Fields(candidate)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?\"()[]{}'-")
		lower := strings.ToLower(cleaned)
		if nameStopWords[lower] {
			return "", false
		}
		if nameTerminators[lower] || !looksLikeNameWord(cleaned) {
			break
		}
		kept = append(kept, capitalizeWord(cleaned))
	}
	if len(kept) == 0 {
		return "", false
	}
	name := strings.Join(kept, " ")
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return "", false
	}
	return name, true
}

// acceptBareName also refuses the labels of our own quick replies, which
// arrive as standalone text when the user taps one.
func acceptBareName(candidate string) (string, bool) {
	if quickReplies[strings.ToLower(strings.Join(strings.Fields(candidate), " "))] {
		return "", false
	}
	return acceptName(candidate)
}

func looksLikeNameWord(word string) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(word)
	return unicode.IsLetter(first)
}

func capitalizeWord(word string) string {
	first, size := utf8.DecodeRuneInString(word)
	if first == utf8.RuneError || size == 0 {
		return word
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(word[size:])
}

// ---------- email ----------

const emailToken = `([^\s,;<>()\[\]"]+@[^\s,;<>()\[\]"]+)`

var emailRules = []extractRule{
	{"my email is", regexp.MustCompile(`(?i)\bmy e-?mail(?:\s+(?:address|id))?\s+is\s*:?\s*([^\s,;<>()\[\]"]+)`), acceptEmail},
	{"email ...", regexp.MustCompile(`(?i)\be-?mail\b[^@]*?` + emailToken), acceptEmail},
	{"bare", regexp.MustCompile(`([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`), acceptEmail},
	{"contact ...", regexp.MustCompile(`(?i)\bcontact\b[^@]*?` + emailToken), acceptEmail},
	{"reach ...", regexp.MustCompile(`(?i)\breach\b[^@]*?` + emailToken), acceptEmail},
}

var validEmailRE = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}$`)

func acceptEmail(candidate string) (string, bool) {
	email := strings.ToLower(strings.TrimRight(strings.TrimSpace(candidate), ".,;:!?'\""))
	if len(email) <= 5 || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", false
	}
	if !validEmailRE.MatchString(email) {
		return "", false
	}
	return email, true
}

// ---------- phone ----------

var phoneRules = []extractRule{
	{"indian mobile", regexp.MustCompile(`(?:^|[^\w+])((?:\+91[\s-]?)?[6-9]\d{4}[\s-]?\d{5})(?:[^\w]|$)`), acceptPhone},
	{"bare ten digits", regexp.MustCompile(`(?:^|[^\w+])(\d{10})(?:[^\w]|$)`), acceptPhone},
}

var phoneStripper = strings.NewReplacer(" ", "", "-", "", "\t", "")

func acceptPhone(candidate string) (string, bool) {
	phone := phoneStripper.Replace(candidate)
	digits := strings.TrimPrefix(phone, "+91")
	if len(digits) != 10 {
		return "", false
	}
	return phone, true
}

// ---------- booking reference ----------

var bookingRefRules = []extractRule{
	{"after keyword", regexp.MustCompile(`(?i)\b(?:booking|reference|order)\b(?:\s*(?:id|ref|reference|number|no\.?|code|is|was|:|#|-))*\s*#?([A-Za-z0-9]{6,})\b`), acceptBookingRef},
}

// bookingRefWords follow "booking" in ordinary sentences and are never codes.
var bookingRefWords = wordSet(
	"request", "requests", "reference", "number", "status", "details",
	"confirmation", "confirmed", "cancelled", "canceled", "changes", "change",
	"please", "problem", "refund", "payment", "through", "before", "yesterday",
	"tomorrow", "online", "website", "recently", "already", "because", "without",
)

// acceptBookingRef takes any code with a digit. Letter-only codes must be
// written in capitals ("ABCDEF") and not be a plain word.
func acceptBookingRef(candidate string) (string, bool) {
	switch {
	case strings.ContainsFunc(candidate, unicode.IsDigit):
	case candidate == strings.ToUpper(candidate) && !bookingRefWords[strings.ToLower(candidate)]:
	default:
		return "", false
	}
	return strings.ToUpper(candidate), true
}

// ---------- issue type ----------

func keywordRule(value string, words ...string) extractRule {
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
	return extractRule{
		name:    value,
		pattern: pattern,
		accept:  func(string) (string, bool) { return value, true },
	}
}

// issueRules are checked in order; the first category with a keyword hit wins.
var issueRules = []extractRule{
	keywordRule(string(IssueBooking), "booking", "bookings", "booked", "book", "reservation", "reservations", "reserve", "reserved"),
	keywordRule(string(IssuePayment), "payment", "payments", "pay", "paid", "refund", "refunds", "refunded", "charge", "charges", "charged"),
	keywordRule(string(IssueProperty), "property", "properties", "location", "locations", "venue", "venues"),
	keywordRule(string(IssueAccount), "account", "accounts", `log\s*in`, "login", "password", `sign\s*in`),
}

// ---------- urgency ----------

var urgencyRules = []extractRule{
	keywordRule(string(UrgencyHigh), "urgent", "urgently", "emergency", "asap", "immediately"),
	keywordRule(string(UrgencyMedium), "soon", "today"),
}

// ---------- location ----------

const placePattern = `[\p{L}][\p{L}'-]*(?:[ \t]+[\p{L}][\p{L}'-]*)?`

var locationRules = []extractRule{
	{"property in", regexp.MustCompile(`(?i)\b(?:property|villa|home|house|apartment|flat|place|listing|stay)\s+(?:is\s+)?(?:located\s+)?in\s+(` + placePattern + `)`), acceptPlace},
	{"staying in", regexp.MustCompile(`(?i)\b(?:staying|located|based|live|living)\s+(?:in|at|near)\s+(` + placePattern + `)`), acceptPlace},
	{"location is", regexp.MustCompile(`(?i)\blocation\s*(?:is|:)\s*(` + placePattern + `)`), acceptPlace},
}

// placeBreakers end a place name ("staying in Goa today").
var placeBreakers = wordSet(
	"today", "tomorrow", "tonight", "now", "currently", "right", "since",
	"until", "till", "next", "this", "last", "for", "but", "and", "where",
	"which", "that", "during",
)

func acceptPlace(candidate string) (string, bool) {
	words := strings.Fields(candidate)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?\"()[]{}'-")
		lower := strings.ToLower(cleaned)
		if nameTerminators[lower] || placeBreakers[lower] || !looksLikeNameWord(cleaned) {
			break
		}
		kept = append(kept, capitalizeWord(cleaned))
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, " "), true
}

// ---------- preferred contact ----------

var contactRules = []extractRule{
	{"prefer via", regexp.MustCompile(`(?i)\b(?:prefer|preferably|via|by|over|through)\s+(?:an?\s+)?(e-?mail|phone|call|calls|chat|text|whatsapp)\b`), acceptContact},
	{"call me back", regexp.MustCompile(`(?i)\b(call|phone|ring)\s+me\s+(?:back|on|at|later)\b`), acceptContact},
	{"email me", regexp.MustCompile(`(?i)\b(e-?mail)\s+me\b`), acceptContact},
}

func acceptContact(candidate string) (string, bool) {
	switch strings.ToLower(candidate) {
	case "email", "e-mail":
		return string(ContactEmail), true
	case "phone", "call", "calls", "ring":
		return string(ContactPhone), true
	case "chat", "text", "whatsapp":
		return string(ContactChat), true
	default:
		return "", false
	}
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
