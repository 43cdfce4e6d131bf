package attendance

import (
	"fmt"
	"strings"
	"time"

	"weekendschool/internal/apperr"
)

// Day is the weekend day a session is held on.
type Day string

const (
	Saturday Day = "SATURDAY"
	Sunday   Day = "SUNDAY"
)

// ParseDay accepts SATURDAY/SUNDAY in any case.
func ParseDay(s string) (Day, error) {
	switch Day(strings.ToUpper(strings.TrimSpace(s))) {
	case Saturday:
		return Saturday, nil
	case Sunday:
		return Sunday, nil
	}
	return "", fmt.Errorf("%w: unknown day %q", apperr.ErrInvalidState, s)
}

// Weekday returns the time.Weekday for d.
func (d Day) Weekday() time.Weekday {
	if d == Sunday {
		return time.Sunday
	}
	return time.Saturday
}

// Title renders the day for labels ("Saturday").
func (d Day) Title() string {
	if d == Sunday {
		return "Sunday"
	}
	return "Saturday"
}

// Status is the state of an attendance record.
type Status string

const (
	StatusPresent      Status = "PRESENT"
	StatusAbsent       Status = "ABSENT"
	StatusWrongSession Status = "WRONG_SESSION"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPresent, StatusAbsent, StatusWrongSession:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidState, s)
}

const dateLayout = "2006-01-02"

// Date is a calendar date with no time zone, formatted YYYY-MM-DD.
type Date string

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: invalid date %q", apperr.ErrInvalidState, s)
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(dateLayout))
}

// Time returns midnight of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Weekday returns the day of week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date(d.Time(time.UTC).AddDate(0, 0, n).Format(dateLayout))
}

// Before reports whether d is strictly earlier than other. Dates compare
// lexically because of the fixed layout.
func (d Date) Before(other Date) bool { return d < other }

func (d Date) String() string { return string(d) }

// Course is the tenancy boundary.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Class belongs to a course and owns sessions.
type Class struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
}

// Session is a weekly time slot of a class.
type Session struct {
	ID        string `json:"id"`
	ClassID   string `json:"class_id"`
	CourseID  string `json:"course_id"`
	ClassName string `json:"class_name"`
	Day       Day    `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Capacity  int    `json:"capacity"`
}

// Describe renders "Class A Saturday 09:00-11:00".
func (s Session) Describe() string {
	return fmt.Sprintf("%s %s %s-%s", s.ClassName, s.Day.Title(), s.StartTime, s.EndTime)
}

// EndsAt returns the instant the session ends on date d in loc. A malformed
// end time is treated as end of day.
func (s Session) EndsAt(d Date, loc *time.Location) time.Time {
	day := d.Time(loc)
	hm, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return day.AddDate(0, 0, 1)
	}
	return day.Add(time.Duration(hm.Hour())*time.Hour + time.Duration(hm.Minute())*time.Minute)
}

// HeldOn reports whether the session takes place on date d.
func (s Session) HeldOn(d Date) bool {
	return d.Weekday() == s.Day.Weekday()
}

// Student carries the weekend session assignment.
type Student struct {
	ID              string `json:"id"`
	CourseID        string `json:"course_id"`
	ClassID         string `json:"class_id"`
	Name            string `json:"name"`
	SaturdaySession string `json:"saturday_session_id,omitempty"`
	SundaySession   string `json:"sunday_session_id,omitempty"`
	Deleted         bool   `json:"deleted,omitempty"`
}

// AssignedFor returns the session id assigned for day, or "" when none.
func (s Student) AssignedFor(day Day) string {
	if day == Sunday {
		return s.SundaySession
	}
	return s.SaturdaySession
}

// Key identifies a ledger entry.
type Key struct {
	StudentID string
	SessionID string
	Date      Date
}

func (k Key) String() string {
	return k.StudentID + "/" + k.SessionID + "/" + string(k.Date)
}

// Record is one attendance ledger entry.
type Record struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	SessionID string     `json:"session_id"`
	Date      Date       `json:"date"`
	Status    Status     `json:"status"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	MarkedBy  *string    `json:"marked_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return Key{StudentID: r.StudentID, SessionID: r.SessionID, Date: r.Date}
}
