package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
)

// Status is the lifecycle state of a task. The label is also what gets persisted.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusProgress Status = "PROGRESS"
	StatusDone     Status = "DONE"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusOpen, StatusProgress, StatusDone}

// ParseStatus maps a label onto a Status. Unknown labels are rejected.
func ParseStatus(label string) (Status, error) {
	switch Status(label) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusProgress:
		return StatusProgress, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", WrapError(ErrCodeInvalid, ErrInvalidStatus.Message, fmt.Errorf("%q", label))
	}
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return WrapError(ErrCodeInvalid, ErrInvalidStatus.Message, err)
	}
	parsed, err := ParseStatus(label)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Task represents a persisted unit of work. It is the only shape returned to callers.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	Description *string    `json:"description"`
	Date        *Date      `json:"date"`
	StartTime   *TimeOfDay `json:"start_time"`
	EndTime     *TimeOfDay `json:"end_time"`
	Goal        *string    `json:"goal"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusDone
}

// TaskInput carries the fields of a task to be created. Nil optional fields are not stored.
type TaskInput struct {
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	Description *string    `json:"description,omitempty"`
	Date        *Date      `json:"date,omitempty"`
	StartTime   *TimeOfDay `json:"start_time,omitempty"`
	EndTime     *TimeOfDay `json:"end_time,omitempty"`
	Goal        *string    `json:"goal,omitempty"`
}

// Normalize applies creation defaults.
func (in *TaskInput) Normalize() {
	if in.Status == "" {
		in.Status = StatusOpen
	}
}

func (in *TaskInput) Validate() error {
	if in == nil {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if _, err := ParseStatus(string(in.Status)); err != nil {
		return err
	}
	if err := checkLength("title", in.Title); err != nil {
		return err
	}
	if in.Goal != nil {
		if err := checkLength("goal", *in.Goal); err != nil {
			return err
		}
	}
	if in.Date != nil {
		if err := in.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MaxTextLength bounds title and goal; both columns are VARCHAR(255).
const MaxTextLength = 255

// Accepted date range, shared by every backend.
var (
	MinDate = NewDate(1, time.January, 1)
	MaxDate = NewDate(9999, time.December, 31)
)

var (
	minUnixSeconds = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxUnixSeconds = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

func checkLength(field, value string) error {
	if n := utf8.RuneCountInString(value); n > MaxTextLength {
		return WrapError(ErrCodeInvalid, ErrValueTooLong.Message, fmt.Errorf("%s has %d characters, limit is %d", field, n, MaxTextLength))
	}
	return nil
}

// DateFromUnix converts whole unix seconds into the UTC calendar date.
func DateFromUnix(seconds float64) (Date, error) {
	if math.IsNaN(seconds) || seconds != math.Trunc(seconds) ||
		seconds < float64(minUnixSeconds) || seconds > float64(maxUnixSeconds) {
		return Date{}, WrapError(ErrCodeInvalid, ErrInvalidDate.Message, fmt.Errorf("unix timestamp %v out of range", seconds))
	}
	return Date{civil.DateOf(time.Unix(int64(seconds), 0).UTC())}, nil
}

// Date is a calendar date without a time zone.
type Date struct {
	civil.Date
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// ParseDate accepts YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return Date{}, WrapError(ErrCodeInvalid, ErrInvalidDate.Message, err)
	}
	date := Date{d}
	if err := date.Validate(); err != nil {
		return Date{}, err
	}
	return date, nil
}

// Validate rejects dates outside 0001-01-01..9999-12-31.
func (d Date) Validate() error {
	if !d.Date.IsValid() || d.Year < MinDate.Year || d.Year > MaxDate.Year {
		return WrapError(ErrCodeInvalid, ErrInvalidDate.Message, fmt.Errorf("%04d-%02d-%02d out of range", d.Year, int(d.Month), d.Day))
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Date.String())
}

// UnmarshalJSON accepts a YYYY-MM-DD string or a unix timestamp in seconds (UTC).
func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		var seconds float64
		if err := json.Unmarshal(data, &seconds); err != nil {
			return WrapError(ErrCodeInvalid, ErrInvalidDate.Message, err)
		}
		parsed, err := DateFromUnix(seconds)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return WrapError(ErrCodeInvalid, ErrInvalidDate.Message, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time independent of any date.
type TimeOfDay struct {
	civil.Time
}

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{civil.Time{Hour: hour, Minute: minute, Second: second}}
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS (fractional seconds allowed).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	t, err := civil.ParseTime(s)
	if err != nil {
		return TimeOfDay{}, WrapError(ErrCodeInvalid, "invalid time of day", err)
	}
	return TimeOfDay{t}, nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return WrapError(ErrCodeInvalid, "invalid time of day", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SinceMidnight returns the time of day as an offset from midnight.
func (t TimeOfDay) SinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}

// TimeOfDayFromDuration converts an offset from midnight into a time of day.
func TimeOfDayFromDuration(d time.Duration) (TimeOfDay, error) {
	if d < 0 || d >= 24*time.Hour {
		return TimeOfDay{}, NewError(ErrCodeInvalid, fmt.Sprintf("time of day out of range: %s", d))
	}
	return TimeOfDay{civil.Time{
		Hour:       int(d / time.Hour),
		Minute:     int(d % time.Hour / time.Minute),
		Second:     int(d % time.Minute / time.Second),
		Nanosecond: int(d % time.Second),
	}}, nil
}
