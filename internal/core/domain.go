package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	Daily   RecurringPeriod = "daily"
	Weekly  RecurringPeriod = "weekly"
	Monthly RecurringPeriod = "monthly"
	Yearly  RecurringPeriod = "yearly"
)

const (
	KindExpense Kind = "expense"
	KindEarning Kind = "earning"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type (
	RecurringPeriod string

	// Kind tells expenses and earnings apart. Both share the Transaction shape.
	Kind string

	// Date is a calendar date held at UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Project struct {
		ID   string
		Name string
	}

	// Transaction is an expense or an earning. Date is always the first
	// occurrence; later occurrences of recurring items are derived.
	Transaction struct {
		ID          int64
		ProjectID   string
		Kind        Kind
		Name        string
		Amount      Money
		Date        Date
		IsRecurring bool
		Period      RecurringPeriod // only meaningful when IsRecurring
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 200 characters)")
	ErrInvalidPeriod  = errors.New("invalid recurrence period")
	ErrMissingPeriod  = errors.New("recurring item without period")
	ErrInvalidKind    = errors.New("invalid transaction kind")
	ErrEmptyProjectID = errors.New("empty project id")
	ErrNotFound       = errors.New("not found")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date, keeping the wall clock day of t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler so dates travel as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the method promoted from time.Time.
func (d Date) MarshalJSON() ([]byte, error) {
	b, _ := d.MarshalText()
	return []byte(strconv.Quote(string(b))), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}

// StartOfMonth returns the first day of d's month.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return Date{Time: d.StartOfMonth().AddDate(0, 1, -1)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Money arithmetic saturates at ±maxCents instead of wrapping, so every
// result stays within the range UnmarshalJSON accepts.

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	s := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && s < m.Cents:
		return Money{Cents: maxCents}
	case o.Cents < 0 && s > m.Cents:
		return Money{Cents: -maxCents}
	}
	return clampCents(s)
}

// Sub returns m minus o.
func (m Money) Sub(o Money) Money {
	d := m.Cents - o.Cents
	switch {
	case o.Cents < 0 && d < m.Cents:
		return Money{Cents: maxCents}
	case o.Cents > 0 && d > m.Cents:
		return Money{Cents: -maxCents}
	}
	return clampCents(d)
}

// Times returns m repeated n times.
func (m Money) Times(n int64) Money {
	if m.Cents == 0 || n == 0 {
		return Money{}
	}
	p := m.Cents * n
	overflow := p/n != m.Cents ||
		(m.Cents == -1 && n == math.MinInt64) ||
		(n == -1 && m.Cents == math.MinInt64)
	if !overflow {
		return clampCents(p)
	}
	if (m.Cents < 0) != (n < 0) {
		return Money{Cents: -maxCents}
	}
	return Money{Cents: maxCents}
}

func clampCents(c int64) Money {
	return Money{Cents: max(-maxCents, min(c, maxCents))}
}

// Valid reports whether p is one of the supported periods.
func (p RecurringPeriod) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// ParseKind accepts both singular and plural spellings ("expense", "expenses").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "expenses":
		return KindExpense, nil
	case "earning", "earnings":
		return KindEarning, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Plural returns the collection name used in URLs and table names.
func (k Kind) Plural() string {
	return string(k) + "s"
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ProjectID) == "" {
		return ErrEmptyProjectID
	}
	if t.Kind != KindExpense && t.Kind != KindEarning {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return ErrNameTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.IsRecurring {
		if t.Period == "" {
			return ErrMissingPeriod
		}
		if !t.Period.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidPeriod, t.Period)
		}
	}
	return nil
}

// IsValidationError reports whether err comes from input validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidAmount, ErrEmptyName, ErrNameTooLong,
		ErrInvalidPeriod, ErrMissingPeriod, ErrInvalidKind, ErrEmptyProjectID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
