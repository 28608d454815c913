package api

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Форматы дат на проводе.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var jsonNull = []byte("null")

// Money: денежная сумма. В JSON это число ровно с двумя знаками после точки: 150.00.
// На входе принимается и число, и строка.
type Money struct {
	decimal.Decimal
}

// NewMoney оборачивает decimal.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	return m.Decimal.UnmarshalJSON(data)
}

// Date: календарная дата без времени.
type Date struct {
	time.Time
}

// NewDate отбрасывает время суток.
func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate разбирает дату в формате 2006-01-02.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return Date{Time: t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return jsonNull, nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	raw, err := unquote(data)
	if err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp: момент времени с точностью до секунды, в UTC.
type Timestamp struct {
	time.Time
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return jsonNull, nil
	}
	return []byte(`"` + ts.UTC().Format(TimestampLayout) + `"`), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		return nil
	}
	raw, err := unquote(data)
	if err != nil {
		return err
	}
	parsed, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: expected %s", raw, TimestampLayout)
	}
	ts.Time = parsed
	return nil
}

func unquote(data []byte) (string, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return "", fmt.Errorf("expected JSON string, got %s", data)
	}
	return string(data[1 : len(data)-1]), nil
}
