// Package timex parses the subset of TIMEX3 expressions produced by date
// recognisers and classifies how completely they pin down a calendar date.
package timex

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Categories reported by Types.
const (
	TypePresent   = "present"
	TypeDefinite  = "definite"
	TypeDate      = "date"
	TypeDateRange = "daterange"
	TypeDuration  = "duration"
	TypeTime      = "time"
	TypeDateTime  = "datetime"
)

const presentRef = "PRESENT_REF"

// ErrInvalid is returned for expressions outside the supported grammar.
var ErrInvalid = errors.New("timex: invalid expression")

var (
	dateRe     = regexp.MustCompile(`^(\d{4}|XXXX)-(\d{2}|XX)-(\d{2}|XX)(?:T(\d{2})(?::(\d{2})(?::(\d{2}))?)?)?$`)
	monthRe    = regexp.MustCompile(`^(\d{4}|XXXX)-(\d{2})$`)
	weekRe     = regexp.MustCompile(`^(\d{4}|XXXX)-W(\d{2}|XX)(-WE)?$`)
	yearRe     = regexp.MustCompile(`^\d{4}$`)
	timeRe     = regexp.MustCompile(`^T(\d{2})(?::(\d{2})(?::(\d{2}))?)?$`)
	durationRe = regexp.MustCompile(`^P(?:\d+(?:\.\d+)?[YMWD]|T\d+(?:\.\d+)?[HMS])$`)
)

// Timex is a parsed expression. Zero numeric components are unknown.
type Timex struct {
	Expr string

	Year    int
	Month   int
	Day     int
	Week    int
	Weekend bool

	HasTime bool
	Hour    int
	Minute  int
	Second  int

	Duration string
	Present  bool

	Start *Timex
	End   *Timex

	types map[string]bool
}

// Parse parses expr.
func Parse(expr string) (Timex, error) {
	expr = strings.TrimSpace(expr)
	t := Timex{Expr: expr, types: make(map[string]bool)}

	switch {
	case expr == "":
		return t, fmt.Errorf("%w: empty", ErrInvalid)

	case expr == presentRef:
		t.Present = true
		t.add(TypePresent, TypeDate, TypeTime, TypeDateTime)

	case strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")"):
		if err := t.parseRange(expr[1 : len(expr)-1]); err != nil {
			return t, err
		}

	case dateRe.MatchString(expr):
		if err := t.parseDate(dateRe.FindStringSubmatch(expr)); err != nil {
			return t, err
		}

	case monthRe.MatchString(expr):
		m := monthRe.FindStringSubmatch(expr)
		t.Year = component(m[1])
		t.Month = component(m[2])
		if t.Month < 1 || t.Month > 12 {
			return t, fmt.Errorf("%w: month out of range in %q", ErrInvalid, expr)
		}
		t.add(TypeDateRange)

	case weekRe.MatchString(expr):
		m := weekRe.FindStringSubmatch(expr)
		t.Year = component(m[1])
		t.Week = component(m[2])
		t.Weekend = m[3] != ""
		t.add(TypeDateRange)

	case yearRe.MatchString(expr):
		t.Year = component(expr)
		t.add(TypeDateRange)

	case durationRe.MatchString(expr):
		t.Duration = expr
		t.add(TypeDuration)

	case timeRe.MatchString(expr):
		m := timeRe.FindStringSubmatch(expr)
		t.setTime(m[1], m[2], m[3])
		t.add(TypeTime)

	default:
		return t, fmt.Errorf("%w: %q", ErrInvalid, expr)
	}

	return t, nil
}

func (t *Timex) parseDate(m []string) error {
	t.Year = component(m[1])
	t.Month = component(m[2])
	t.Day = component(m[3])

	if t.Month > 12 || (m[2] != "XX" && t.Month < 1) {
		return fmt.Errorf("%w: month out of range in %q", ErrInvalid, t.Expr)
	}
	if t.Day > 31 || (m[3] != "XX" && t.Day < 1) {
		return fmt.Errorf("%w: day out of range in %q", ErrInvalid, t.Expr)
	}

	t.add(TypeDate)
	if t.Year > 0 && t.Month > 0 && t.Day > 0 {
		d := time.Date(t.Year, time.Month(t.Month), t.Day, 0, 0, 0, 0, time.UTC)
		if d.Day() != t.Day {
			return fmt.Errorf("%w: no such day %q", ErrInvalid, t.Expr)
		}
		t.add(TypeDefinite)
	}

	if m[4] != "" {
		t.setTime(m[4], m[5], m[6])
		t.add(TypeTime, TypeDateTime)
	}
	return nil
}

func (t *Timex) parseRange(inner string) error {
	parts := strings.Split(inner, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("%w: range needs start and end in %q", ErrInvalid, t.Expr)
	}

	start, err := Parse(parts[0])
	if err != nil {
		return err
	}
	end, err := Parse(parts[1])
	if err != nil {
		return err
	}
	t.Start, t.End = &start, &end

	if len(parts) == 3 {
		if !durationRe.MatchString(strings.TrimSpace(parts[2])) {
			return fmt.Errorf("%w: bad range duration in %q", ErrInvalid, t.Expr)
		}
		t.Duration = strings.TrimSpace(parts[2])
		t.add(TypeDuration)
	}

	t.add(TypeDateRange)
	if start.has(TypeDefinite) && end.has(TypeDefinite) {
		t.add(TypeDefinite)
	}
	return nil
}

func (t *Timex) setTime(h, m, s string) {
	t.HasTime = true
	t.Hour, _ = strconv.Atoi(h)
	t.Minute, _ = strconv.Atoi(m)
	t.Second, _ = strconv.Atoi(s)
}

func (t *Timex) add(types ...string) {
	for _, ty := range types {
		t.types[ty] = true
	}
}

func (t *Timex) has(ty string) bool {
	return t.types[ty]
}

// Types returns the categories of the expression in sorted order.
func (t Timex) Types() []string {
	out := make([]string, 0, len(t.types))
	for ty := range t.types {
		out = append(out, ty)
	}
	sort.Strings(out)
	return out
}

// IsDefinite reports whether the expression names a fully-specified calendar
// date (or a range whose ends both are).
func (t Timex) IsDefinite() bool {
	return t.has(TypeDefinite)
}

// Date returns the calendar date of a definite single-date expression.
func (t Timex) Date() (time.Time, bool) {
	if !t.IsDefinite() || t.Start != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year, time.Month(t.Month), t.Day, 0, 0, 0, 0, time.UTC), true
}

// IsDefinite parses expr and reports whether it is definite. Unparseable
// expressions are not.
func IsDefinite(expr string) bool {
	t, err := Parse(expr)
	if err != nil {
		return false
	}
	return t.IsDefinite()
}

// IsAmbiguous is the negation of IsDefinite.
func IsAmbiguous(expr string) bool {
	return !IsDefinite(expr)
}

// DatePart strips a trailing time-of-day from a date expression.
func DatePart(expr string) string {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "P") || strings.HasPrefix(expr, "(") {
		return expr
	}
	if i := strings.Index(expr, "T"); i > 0 {
		return expr[:i]
	}
	return expr
}

// FormatDate renders a calendar date as a definite timex expression.
func FormatDate(d time.Time) string {
	return d.Format("2006-01-02")
}

func component(s string) int {
	if strings.HasPrefix(s, "X") {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
