package report

import (
	"context"
	"fmt"
	"time"

	"weekendschool/internal/apperr"
	"weekendschool/internal/attendance"
	"weekendschool/internal/policy"
)

const (
	defaultRangeDays = 28
	maxRangeDays     = 366
)

// Range is an inclusive date range.
type Range struct {
	From attendance.Date `json:"from"`
	To   attendance.Date `json:"to"`
}

// Service runs report queries against the ledger.
type Service struct {
	store attendance.Store
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a report service. A nil loc means UTC.
func NewService(store attendance.Store, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, loc: loc, now: now}
}

// ResolveRange parses from/to query values. Missing to means today; missing
// from means four weeks ending at to.
func (s *Service) ResolveRange(from, to string) (Range, error) {
	var r Range
	var err error
	if to == "" {
		r.To = attendance.DateOf(s.now(), s.loc)
	} else if r.To, err = attendance.ParseDate(to); err != nil {
		return Range{}, err
	}
	if from == "" {
		r.From = r.To.AddDays(-(defaultRangeDays - 1))
	} else if r.From, err = attendance.ParseDate(from); err != nil {
		return Range{}, err
	}
	if r.To.Before(r.From) {
		return Range{}, fmt.Errorf("%w: from %s is after to %s", apperr.ErrInvalidState, r.From, r.To)
	}
	if r.From.AddDays(maxRangeDays - 1).Before(r.To) {
		return Range{}, fmt.Errorf("%w: range exceeds %d days", apperr.ErrInvalidState, maxRangeDays)
	}
	return r, nil
}

// CourseReport is the course overview.
type CourseReport struct {
	CourseID string    `json:"course_id"`
	Range    Range     `json:"range"`
	Totals   Counts    `json:"totals"`
	Classes  []Summary `json:"classes"`
}

// ClassReport is the per-class detail.
type ClassReport struct {
	ClassID   string    `json:"class_id"`
	SessionID string    `json:"session_id,omitempty"`
	Range     Range     `json:"range"`
	Totals    Counts    `json:"totals"`
	Sessions  []Summary `json:"sessions"`
	Students  []Summary `json:"students"`
}

// StudentReport is one student's history.
type StudentReport struct {
	Student attendance.Student `json:"student"`
	Range   Range              `json:"range"`
	Totals  Counts             `json:"totals"`
	Entries []Entry            `json:"entries"`
}

// SessionReport is the per-occurrence history.
type SessionReport struct {
	CourseID    string    `json:"course_id"`
	Range       Range     `json:"range"`
	Totals      Counts    `json:"totals"`
	Occurrences []Summary `json:"occurrences"`
}

// CourseOverview summarises every class of courseID.
func (s *Service) CourseOverview(ctx context.Context, p policy.Principal, courseID string, r Range) (CourseReport, error) {
	if err := policy.Authorize(p, policy.ActionViewReports, policy.Scope{CourseID: courseID}); err != nil {
		return CourseReport{}, err
	}
	entries, err := s.entries(ctx, attendance.SessionFilter{CourseID: courseID}, attendance.StudentFilter{CourseID: courseID}, "", r)
	if err != nil {
		return CourseReport{}, err
	}
	return CourseReport{CourseID: courseID, Range: r, Totals: Total(entries), Classes: ByClass(entries)}, nil
}

// ClassDetail breaks one class down by session and student, optionally for a
// single session.
func (s *Service) ClassDetail(ctx context.Context, p policy.Principal, classID, sessionID string, r Range) (ClassReport, error) {
	courseID, err := s.classCourse(ctx, classID)
	if err != nil {
		return ClassReport{}, err
	}
	if err := policy.Authorize(p, policy.ActionViewReports, policy.Scope{CourseID: courseID}); err != nil {
		return ClassReport{}, err
	}
	entries, err := s.entries(ctx,
		attendance.SessionFilter{CourseID: courseID, ClassID: classID, SessionID: sessionID},
		attendance.StudentFilter{CourseID: courseID}, "", r)
	if err != nil {
		return ClassReport{}, err
	}
	return ClassReport{
		ClassID:   classID,
		SessionID: sessionID,
		Range:     r,
		Totals:    Total(entries),
		Sessions:  BySession(entries),
		Students:  ByStudent(entries),
	}, nil
}

// StudentHistory lists every entry of one student, including records left in
// sessions they are not assigned to.
func (s *Service) StudentHistory(ctx context.Context, p policy.Principal, studentID string, r Range) (StudentReport, error) {
	if !p.Authenticated() {
		return StudentReport{}, apperr.ErrUnauthorized
	}
	st, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	if err := policy.Authorize(p, policy.ActionViewStudent, policy.Scope{CourseID: st.CourseID, StudentID: st.ID}); err != nil {
		return StudentReport{}, err
	}
	entries, err := s.entries(ctx,
		attendance.SessionFilter{CourseID: st.CourseID},
		attendance.StudentFilter{StudentID: st.ID}, st.ID, r)
	if err != nil {
		return StudentReport{}, err
	}
	return StudentReport{Student: st, Range: r, Totals: Total(entries), Entries: entries}, nil
}

// SessionHistory reports each session occurrence in range, optionally
// restricted to a class and day.
func (s *Service) SessionHistory(ctx context.Context, p policy.Principal, courseID, classID string, day attendance.Day, r Range) (SessionReport, error) {
	if err := policy.Authorize(p, policy.ActionViewReports, policy.Scope{CourseID: courseID}); err != nil {
		return SessionReport{}, err
	}
	entries, err := s.entries(ctx,
		attendance.SessionFilter{CourseID: courseID, ClassID: classID, Day: day},
		attendance.StudentFilter{CourseID: courseID}, "", r)
	if err != nil {
		return SessionReport{}, err
	}
	return SessionReport{CourseID: courseID, Range: r, Totals: Total(entries), Occurrences: BySessionDate(entries)}, nil
}

// Export returns raw entries for a course, optionally one class.
func (s *Service) Export(ctx context.Context, p policy.Principal, courseID, classID string, r Range) ([]Entry, error) {
	if err := policy.Authorize(p, policy.ActionExport, policy.Scope{CourseID: courseID}); err != nil {
		return nil, err
	}
	return s.entries(ctx,
		attendance.SessionFilter{CourseID: courseID, ClassID: classID},
		attendance.StudentFilter{CourseID: courseID}, "", r)
}

func (s *Service) classCourse(ctx context.Context, classID string) (string, error) {
	sessions, err := s.store.ListSessions(ctx, attendance.SessionFilter{ClassID: classID})
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", fmt.Errorf("%w: class %s", apperr.ErrNotFound, classID)
	}
	return sessions[0].CourseID, nil
}

func (s *Service) entries(ctx context.Context, sf attendance.SessionFilter, stf attendance.StudentFilter, studentID string, r Range) ([]Entry, error) {
	sessions, err := s.store.ListSessions(ctx, sf)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return []Entry{}, nil
	}
	students, err := s.store.ListStudents(ctx, stf)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	records, err := s.store.ListRecords(ctx, attendance.RecordFilter{SessionIDs: ids, StudentID: studentID, From: r.From, To: r.To})
	if err != nil {
		return nil, err
	}
	entries := Sweep(Snapshot{
		Sessions: sessions,
		Students: students,
		Records:  records,
		From:     r.From,
		To:       r.To,
		Now:      s.now(),
		Location: s.loc,
	})
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
