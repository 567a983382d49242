package sales

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anotherstories/storehq/internal/platform/httpx"
)

const (
	// DateLayout is the calendar date format used on the wire and as bucket key.
	DateLayout = "2006-01-02"
	// MonthLayout is the month bucket key format.
	MonthLayout = "2006-01"

	defaultWindowDays = 30

	// MaxRangeDays bounds request windows, roughly ten years.
	MaxRangeDays = 3660

	secondsPerDay = 24 * 60 * 60
)

// DateRange is an inclusive window of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// PartialRange carries optional user supplied bounds.
type PartialRange struct {
	From *time.Time
	To   *time.Time
}

// ParseDate parses a YYYY-MM-DD value as a UTC calendar day. Longer timestamp
// strings are truncated to their date part.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParsePartialRange reads optional from/to query values. Empty values stay
// unset; malformed ones fail with the offending field named.
func ParsePartialRange(from, to string) (PartialRange, error) {
	var p PartialRange
	bad := make(map[string]string)
	for _, f := range []struct {
		name  string
		value string
		dst   **time.Time
	}{{"from", from, &p.From}, {"to", to, &p.To}} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		t, err := time.Parse(DateLayout, strings.TrimSpace(f.value))
		if err != nil {
			bad[f.name] = "must match " + DateLayout
			continue
		}
		*f.dst = &t
	}
	if len(bad) > 0 {
		return PartialRange{}, &httpx.FieldErrors{Fields: bad}
	}
	if p.From != nil && p.To != nil {
		if err := ClampRange(p, *p.To).CheckSpan(); err != nil {
			return PartialRange{}, err
		}
	}
	return p, nil
}

// FormatDate renders a day key.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ClampRange completes a partial range. A lone from runs until today and
// anything without a from becomes the 30 days ending today. Both bounds are
// kept as given with one exception: a reversed pair is swapped so From <= To
// always holds for the aggregations.
func ClampRange(partial PartialRange, today time.Time) DateRange {
	today = Day(today)
	var r DateRange
	switch {
	case partial.From != nil && partial.To != nil:
		r = DateRange{From: Day(*partial.From), To: Day(*partial.To)}
	case partial.From != nil:
		r = DateRange{From: Day(*partial.From), To: today}
	default:
		r = DateRange{From: today.AddDate(0, 0, -(defaultWindowDays - 1)), To: today}
	}
	if r.From.After(r.To) {
		r.From, r.To = r.To, r.From
	}
	return r
}

// Contains reports whether day falls inside the range, bounds included.
func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(r.From) && !day.After(r.To)
}

// Days returns the number of calendar days in the range, at least 1. It
// counts on Unix seconds so spans beyond time.Duration stay exact.
func (r DateRange) Days() int {
	days := (Day(r.To).Unix()-Day(r.From).Unix())/secondsPerDay + 1
	if days < 1 {
		return 1
	}
	return int(days)
}

// CheckSpan rejects windows longer than MaxRangeDays, naming both bounds.
func (r DateRange) CheckSpan() error {
	if r.Days() <= MaxRangeDays {
		return nil
	}
	msg := fmt.Sprintf("range must not exceed %d days", MaxRangeDays)
	return &httpx.FieldErrors{Fields: map[string]string{"from": msg, "to": msg}}
}

// PriorYear shifts both bounds back one calendar year.
func (r DateRange) PriorYear() DateRange {
	return DateRange{From: r.From.AddDate(-1, 0, 0), To: r.To.AddDate(-1, 0, 0)}
}

// Key renders the range as from..to for cache keys and file names.
func (r DateRange) Key() string {
	return FormatDate(r.From) + ".." + FormatDate(r.To)
}

type dateRangeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MarshalJSON renders both bounds as YYYY-MM-DD.
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{From: FormatDate(r.From), To: FormatDate(r.To)})
}

// UnmarshalJSON accepts the MarshalJSON representation.
func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	from, ok := ParseDate(raw.From)
	if !ok {
		return fmt.Errorf("sales: invalid from date %q", raw.From)
	}
	to, ok := ParseDate(raw.To)
	if !ok {
		return fmt.Errorf("sales: invalid to date %q", raw.To)
	}
	r.From, r.To = from, to
	return nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// day parses the record date; ok is false for malformed dates.
func (r SaleRecord) day() (time.Time, bool) {
	return ParseDate(r.Date)
}
