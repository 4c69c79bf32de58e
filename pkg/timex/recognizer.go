package timex

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var months = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

const monthAlt = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	dayMonthRe = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?\s+(` + monthAlt + `)$`)
	monthDayRe = regexp.MustCompile(`^(` + monthAlt + `)\s+(\d{1,2})(?:st|nd|rd|th)?$`)
	ordinalRe  = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)
	yearWordRe = regexp.MustCompile(`\b\d{4}\b`)
)

var relativeDays = map[string]int{
	"today":                  0,
	"tonight":                0,
	"tomorrow":               1,
	"day after tomorrow":     2,
	"the day after tomorrow": 2,
	"yesterday":              -1,
}

// Recognizer turns free-text date replies into candidate timex expressions.
type Recognizer struct {
	// Now supplies the reference time for relative phrases.
	Now      func() time.Time
	Location *time.Location
}

// NewRecognizer creates a recognizer anchored on the wall clock in UTC.
func NewRecognizer() *Recognizer {
	return &Recognizer{Now: time.Now, Location: time.UTC}
}

// Recognize returns the candidate expressions for text, most specific first.
// An empty result means nothing date-like was found.
func (r *Recognizer) Recognize(text string) []string {
	raw := strings.TrimSpace(text)
	s := strings.ToLower(strings.TrimRight(raw, ".!? "))
	if s == "" {
		return nil
	}

	if offset, ok := relativeDays[s]; ok {
		return []string{FormatDate(r.now().AddDate(0, 0, offset))}
	}

	if _, err := Parse(raw); err == nil {
		return []string{raw}
	}

	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		return []string{partialDate(months[m[2]], m[1])}
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		return []string{partialDate(months[m[1]], m[2])}
	}

	if yearWordRe.MatchString(s) {
		cleaned := ordinalRe.ReplaceAllString(s, "$1")
		cleaned = strings.ReplaceAll(cleaned, " of ", " ")
		if d, err := dateparse.ParseIn(cleaned, r.location()); err == nil {
			return []string{FormatDate(d)}
		}
	}

	return nil
}

// Resolve returns the first candidate for text whose date part is definite.
func (r *Recognizer) Resolve(text string) (string, bool) {
	for _, candidate := range r.Recognize(text) {
		if date := DatePart(candidate); IsDefinite(date) {
			return date, true
		}
	}
	return "", false
}

func (r *Recognizer) now() time.Time {
	if r.Now == nil {
		return time.Now().In(r.location())
	}
	return r.Now().In(r.location())
}

func (r *Recognizer) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func partialDate(month int, day string) string {
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("XXXX-%02d-%s", month, day)
}
