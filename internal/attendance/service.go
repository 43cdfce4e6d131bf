package attendance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weekendschool/internal/apperr"
	"weekendschool/internal/metrics"
	"weekendschool/internal/policy"
	"weekendschool/internal/queue"
)

// PayloadDecoder resolves a scanned QR payload to a student id.
type PayloadDecoder interface {
	Decode(payload string) (string, error)
}

type inputKind int

const (
	scanInput inputKind = iota + 1
	manualInput
)

// Input is a write-path request built with Scan or Manual.
type Input struct {
	kind      inputKind
	payload   string
	studentID string
	sessionID string
	status    Status
	date      Date
}

// Scan is a camera scan of a student's QR payload into sessionID, dated today.
func Scan(payload, sessionID string) Input {
	return Input{kind: scanInput, payload: payload, sessionID: sessionID}
}

// Manual is a teacher marking studentID with an explicit status. An empty
// date means today.
func Manual(studentID, sessionID string, status Status, date Date) Input {
	return Input{kind: manualInput, studentID: studentID, sessionID: sessionID, status: status, date: date}
}

func (in Input) path() string {
	if in.kind == scanInput {
		return "scan"
	}
	return "manual"
}

// Outcome is what the write path hands back to the caller.
type Outcome struct {
	Record      Record  `json:"record"`
	Created     bool    `json:"created"`
	Previous    Status  `json:"previous_status,omitempty"`
	Label       string  `json:"label"`
	StudentName string  `json:"student_name"`
	Session     Session `json:"session"`
}

// Service is the attendance write path.
type Service struct {
	store  Store
	codec  PayloadDecoder
	events queue.Publisher
	log    *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes an event for every newly created record.
func WithEvents(p queue.Publisher) Option { return func(s *Service) { s.events = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithLocation sets the school time zone used to decide "today".
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates the write path over store.
func NewService(store Store, codec PayloadDecoder, opts ...Option) *Service {
	s := &Service{
		store: store,
		codec: codec,
		log:   zap.NewNop(),
		loc:   time.UTC,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today returns the current date in the school time zone.
func (s *Service) Today() Date { return DateOf(s.now(), s.loc) }

// Location returns the school time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Mark records in exactly once per (student, session, date). An existing
// record is returned unchanged; a lost insert race returns the winner.
func (s *Service) Mark(ctx context.Context, p policy.Principal, in Input) (Outcome, error) {
	out, err := s.mark(ctx, p, in)
	if err != nil {
		metrics.Rejections.WithLabelValues(in.path(), reason(err)).Inc()
		return Outcome{}, err
	}
	metrics.Marks.WithLabelValues(in.path(), string(out.Record.Status), strconv.FormatBool(out.Created)).Inc()
	return out, nil
}

func (s *Service) mark(ctx context.Context, p policy.Principal, in Input) (Outcome, error) {
	if in.kind == 0 {
		return Outcome{}, fmt.Errorf("%w: empty attendance input", apperr.ErrInvalidState)
	}
	if in.sessionID == "" {
		return Outcome{}, fmt.Errorf("%w: sessionId is required", apperr.ErrInvalidState)
	}
	action := policy.ActionMark
	if in.kind == scanInput {
		action = policy.ActionScan
		id, err := s.codec.Decode(in.payload)
		if err != nil {
			return Outcome{}, err
		}
		in.studentID = id
	} else if in.status != StatusPresent && in.status != StatusAbsent {
		return Outcome{}, fmt.Errorf("%w: manual status must be PRESENT or ABSENT", apperr.ErrInvalidState)
	}

	session, student, err := s.load(ctx, p, action, in.studentID, in.sessionID)
	if err != nil {
		return Outcome{}, err
	}
	date, err := s.resolveDate(in, session)
	if err != nil {
		return Outcome{}, err
	}
	if student.AssignedFor(session.Day) == "" {
		return Outcome{}, fmt.Errorf("%w: student %s is not enrolled for %s", apperr.ErrInvalidState, student.ID, session.Day.Title())
	}

	key := Key{StudentID: student.ID, SessionID: session.ID, Date: date}
	if existing, err := s.store.GetRecord(ctx, key); err == nil {
		return s.outcome(ctx, existing, false, student, session), nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Outcome{}, err
	}

	rec := Record{StudentID: student.ID, SessionID: session.ID, Date: date}
	if in.kind == scanInput {
		status, err := Classify(student, session)
		if err != nil {
			return Outcome{}, err
		}
		rec.Status = status
		at := s.now().UTC()
		rec.ScannedAt = &at
	} else {
		rec.Status = in.status
		by := p.UserID
		rec.MarkedBy = &by
	}

	created, err := s.store.InsertRecord(ctx, rec)
	if errors.Is(err, apperr.ErrDuplicate) {
		metrics.Conflicts.Inc()
		winner, rerr := s.store.GetRecord(ctx, key)
		if rerr != nil {
			return Outcome{}, rerr
		}
		s.log.Debug("attendance insert lost race", zap.String("key", key.String()))
		return s.outcome(ctx, winner, false, student, session), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	s.publish(ctx, created, session, in.kind == manualInput)
	return s.outcome(ctx, created, true, student, session), nil
}

// CorrectInput targets an existing or missing record for an explicit fix.
type CorrectInput struct {
	StudentID string
	SessionID string
	Date      Date
	Status    Status
}

// Correct overwrites the status for a (student, session, date), inserting the
// record if none exists. It is the only path that changes a recorded status.
func (s *Service) Correct(ctx context.Context, p policy.Principal, in CorrectInput) (Outcome, error) {
	out, err := s.correct(ctx, p, in)
	if err != nil {
		metrics.Rejections.WithLabelValues("correct", reason(err)).Inc()
		return Outcome{}, err
	}
	metrics.Marks.WithLabelValues("correct", string(out.Record.Status), strconv.FormatBool(out.Created)).Inc()
	return out, nil
}

func (s *Service) correct(ctx context.Context, p policy.Principal, in CorrectInput) (Outcome, error) {
	if in.SessionID == "" || in.StudentID == "" {
		return Outcome{}, fmt.Errorf("%w: studentId and sessionId are required", apperr.ErrInvalidState)
	}
	if in.Date == "" {
		return Outcome{}, fmt.Errorf("%w: date is required", apperr.ErrInvalidState)
	}
	if _, err := ParseStatus(string(in.Status)); err != nil {
		return Outcome{}, err
	}
	session, student, err := s.load(ctx, p, policy.ActionCorrect, in.StudentID, in.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	date, err := s.resolveDate(Input{kind: manualInput, date: in.Date}, session)
	if err != nil {
		return Outcome{}, err
	}

	by := p.UserID
	rec := Record{StudentID: student.ID, SessionID: session.ID, Date: date, Status: in.Status, MarkedBy: &by}
	prev, err := s.store.GetRecord(ctx, rec.Key())
	switch {
	case err == nil:
		updated, err := s.store.UpdateRecord(ctx, rec)
		if err != nil {
			return Outcome{}, err
		}
		out := s.outcome(ctx, updated, false, student, session)
		out.Previous = prev.Status
		out.Label = "corrected to " + statusWord(updated.Status)
		s.log.Info("attendance corrected",
			zap.String("key", rec.Key().String()),
			zap.String("from", string(prev.Status)),
			zap.String("to", string(updated.Status)),
			zap.String("by", by))
		return out, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return Outcome{}, err
	}

	created, err := s.store.InsertRecord(ctx, rec)
	if errors.Is(err, apperr.ErrDuplicate) {
		metrics.Conflicts.Inc()
		created, err = s.store.UpdateRecord(ctx, rec)
		if err != nil {
			return Outcome{}, err
		}
		out := s.outcome(ctx, created, false, student, session)
		out.Label = "corrected to " + statusWord(created.Status)
		return out, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	s.publish(ctx, created, session, true)
	out := s.outcome(ctx, created, true, student, session)
	out.Label = "corrected to " + statusWord(created.Status)
	return out, nil
}

// load fetches the target session and student and runs the policy gate
// against the session's course.
func (s *Service) load(ctx context.Context, p policy.Principal, action policy.Action, studentID, sessionID string) (Session, Student, error) {
	if !p.Authenticated() {
		return Session{}, Student{}, apperr.ErrUnauthorized
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, Student{}, err
	}
	if err := policy.Authorize(p, action, policy.Scope{CourseID: session.CourseID}); err != nil {
		return Session{}, Student{}, err
	}
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return Session{}, Student{}, err
	}
	if student.CourseID != session.CourseID {
		return Session{}, Student{}, fmt.Errorf("%w: student %s is not in course %s", apperr.ErrForbidden, student.ID, session.CourseID)
	}
	return session, student, nil
}

func (s *Service) resolveDate(in Input, session Session) (Date, error) {
	today := s.Today()
	date := in.date
	if in.kind == scanInput || date == "" {
		date = today
	}
	if today.Before(date) {
		return "", fmt.Errorf("%w: %s is in the future", apperr.ErrInvalidState, date)
	}
	if !session.HeldOn(date) {
		return "", fmt.Errorf("%w: session %s is not held on %s", apperr.ErrInvalidState, session.ID, date)
	}
	return date, nil
}

func (s *Service) outcome(ctx context.Context, rec Record, created bool, student Student, session Session) Outcome {
	var expected *Session
	if rec.Status == StatusWrongSession {
		if assigned := student.AssignedFor(session.Day); assigned != "" {
			if es, err := s.store.GetSession(ctx, assigned); err == nil {
				expected = &es
			}
		}
	}
	return Outcome{
		Record:      rec,
		Created:     created,
		Label:       Label(rec.Status, created, expected),
		StudentName: student.Name,
		Session:     session,
	}
}

func (s *Service) publish(ctx context.Context, rec Record, session Session, manual bool) {
	if s.events == nil {
		return
	}
	msg, err := queue.NewAttendanceMessage(queue.AttendanceEvent{
		RecordID:  rec.ID,
		StudentID: rec.StudentID,
		SessionID: rec.SessionID,
		CourseID:  session.CourseID,
		Date:      string(rec.Date),
		Status:    string(rec.Status),
		Manual:    manual,
		At:        s.now().UTC(),
	})
	if err == nil {
		err = s.events.Publish(ctx, msg)
	}
	if err != nil {
		s.log.Warn("attendance event publish failed", zap.String("record_id", rec.ID), zap.Error(err))
	}
}

func statusWord(st Status) string {
	switch st {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	}
	return "wrong session"
}

func reason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperr.ErrStorage):
		return "storage"
	}
	return "other"
}
