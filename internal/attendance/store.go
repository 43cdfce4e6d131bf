package attendance

import "context"

// SessionFilter narrows catalog reads. Empty fields match everything.
type SessionFilter struct {
	CourseID  string
	ClassID   string
	SessionID string
	Day       Day
}

// StudentFilter narrows student reads. Deleted students are never returned.
type StudentFilter struct {
	CourseID  string
	ClassID   string
	StudentID string
}

// RecordFilter narrows ledger reads; From and To are inclusive.
type RecordFilter struct {
	SessionIDs []string
	StudentID  string
	From       Date
	To         Date
}

// Catalog is the read-only session catalog and student assignment lookup.
type Catalog interface {
	GetSession(ctx context.Context, id string) (Session, error)
	GetStudent(ctx context.Context, id string) (Student, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]Session, error)
	ListStudents(ctx context.Context, f StudentFilter) ([]Student, error)
}

// Ledger stores attendance records keyed by (student, session, date).
//
// InsertRecord must return apperr.ErrDuplicate when the key exists.
// GetRecord and UpdateRecord return apperr.ErrNotFound for a missing key.
type Ledger interface {
	GetRecord(ctx context.Context, k Key) (Record, error)
	InsertRecord(ctx context.Context, r Record) (Record, error)
	UpdateRecord(ctx context.Context, r Record) (Record, error)
	ListRecords(ctx context.Context, f RecordFilter) ([]Record, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	Catalog
	Ledger
}

func (f RecordFilter) matches(r Record) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.From != "" && r.Date.Before(f.From) {
		return false
	}
	if f.To != "" && f.To.Before(r.Date) {
		return false
	}
	if len(f.SessionIDs) == 0 {
		return true
	}
	for _, id := range f.SessionIDs {
		if id == r.SessionID {
			return true
		}
	}
	return false
}

func (f SessionFilter) matches(s Session) bool {
	return (f.CourseID == "" || s.CourseID == f.CourseID) &&
		(f.ClassID == "" || s.ClassID == f.ClassID) &&
		(f.SessionID == "" || s.ID == f.SessionID) &&
		(f.Day == "" || s.Day == f.Day)
}

func (f StudentFilter) matches(s Student) bool {
	return !s.Deleted &&
		(f.CourseID == "" || s.CourseID == f.CourseID) &&
		(f.ClassID == "" || s.ClassID == f.ClassID) &&
		(f.StudentID == "" || s.ID == f.StudentID)
}
