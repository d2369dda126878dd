package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"StockIntel/internal/apperr"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time or zone component. It is the identity
// used for (symbol, date) deduplication in both store backends.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, normalizing out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("unmarshal date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD; Postgres casts it into DATE and SQLite
// keeps it as sortable TEXT.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	n, err := NormalizeDate(s)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	*d = n
	return nil
}

// NormalizeDate converts the date representations seen across providers and
// storage into a Date. Accepted inputs are a Date, a time.Time, a unix-seconds
// timestamp (int, int64 or float64), an ISO-8601 date or date-time string, or a
// non-empty slice of any of these (its first element is used). Date-times are
// truncated to the calendar day they carry, ignoring their zone; timestamps
// are read as UTC.
func NormalizeDate(v any) (Date, error) {
	switch x := v.(type) {
	case Date:
		return x, nil
	case *Date:
		if x == nil {
			return Date{}, apperr.New(apperr.EmptyDateValue, "nil date")
		}
		return *x, nil
	case time.Time:
		return DateOf(x), nil
	case int64:
		return DateOf(time.Unix(x, 0).UTC()), nil
	case int:
		return DateOf(time.Unix(int64(x), 0).UTC()), nil
	case float64:
		return DateOf(time.Unix(int64(x), 0).UTC()), nil
	case string:
		return normalizeDateString(x)
	case []Date:
		if len(x) == 0 {
			return Date{}, apperr.New(apperr.EmptyDateValue, "empty date series")
		}
		return x[0], nil
	case []time.Time:
		if len(x) == 0 {
			return Date{}, apperr.New(apperr.EmptyDateValue, "empty date series")
		}
		return NormalizeDate(x[0])
	case []int64:
		if len(x) == 0 {
			return Date{}, apperr.New(apperr.EmptyDateValue, "empty date series")
		}
		return NormalizeDate(x[0])
	case []string:
		if len(x) == 0 {
			return Date{}, apperr.New(apperr.EmptyDateValue, "empty date series")
		}
		return NormalizeDate(x[0])
	case []any:
		if len(x) == 0 {
			return Date{}, apperr.New(apperr.EmptyDateValue, "empty date series")
		}
		return NormalizeDate(x[0])
	default:
		return Date{}, apperr.New(apperr.UnsupportedDateFormat, "unsupported date type %T", v)
	}
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"20060102",
}

func normalizeDateString(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, apperr.New(apperr.EmptyDateValue, "empty date string")
	}
	if d, err := ParseDate(s); err == nil {
		return d, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, apperr.New(apperr.UnsupportedDateFormat, "unsupported date string %q", s)
}
