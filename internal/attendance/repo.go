package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"weekendschool/internal/apperr"
)

const uniqueViolation = "23505"

// Repository persists the catalog and ledger in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `s.id, s.class_id, c.course_id, c.name, s.day, s.start_time, s.end_time, s.capacity`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.ClassID, &s.CourseID, &s.ClassName, &s.Day, &s.StartTime, &s.EndTime, &s.Capacity)
	return s, err
}

// GetSession returns a session joined with its class.
func (r *Repository) GetSession(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s JOIN classes c ON c.id = s.class_id
		WHERE s.id = $1
	`, id)
	s, err := scanSession(row)
	if err != nil {
		return Session{}, wrapRead(err, "session "+id)
	}
	return s, nil
}

// ListSessions returns sessions matching f ordered by class, day and start time.
func (r *Repository) ListSessions(ctx context.Context, f SessionFilter) ([]Session, error) {
	q := newWhere()
	q.add("c.course_id", f.CourseID)
	q.add("s.class_id", f.ClassID)
	q.add("s.id", f.SessionID)
	q.add("s.day", string(f.Day))
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s JOIN classes c ON c.id = s.class_id`+q.sql()+`
		ORDER BY c.name, s.day, s.start_time, s.id
	`, q.args...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		res = append(res, s)
	}
	return res, wrapStorage(rows.Err())
}

const studentColumns = `id, course_id, class_id, name, COALESCE(saturday_session_id, ''), COALESCE(sunday_session_id, '')`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.CourseID, &st.ClassID, &st.Name, &st.SaturdaySession, &st.SundaySession)
	return st, err
}

// GetStudent returns a non-deleted student.
func (r *Repository) GetStudent(ctx context.Context, id string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM students WHERE id = $1 AND deleted_at IS NULL
	`, id)
	st, err := scanStudent(row)
	if err != nil {
		return Student{}, wrapRead(err, "student "+id)
	}
	return st, nil
}

// ListStudents returns non-deleted students matching f ordered by name.
func (r *Repository) ListStudents(ctx context.Context, f StudentFilter) ([]Student, error) {
	q := newWhere()
	q.clauses = append(q.clauses, "deleted_at IS NULL")
	q.add("course_id", f.CourseID)
	q.add("class_id", f.ClassID)
	q.add("id", f.StudentID)
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students`+q.sql()+` ORDER BY name, id`, q.args...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		res = append(res, st)
	}
	return res, wrapStorage(rows.Err())
}

const recordColumns = `id, student_id, session_id, to_char(attend_date, 'YYYY-MM-DD'), status, scanned_at, marked_by, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var (
		rec       Record
		scannedAt sql.NullTime
		markedBy  sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.SessionID, &rec.Date, &rec.Status, &scannedAt, &markedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if scannedAt.Valid {
		t := scannedAt.Time
		rec.ScannedAt = &t
	}
	if markedBy.Valid {
		s := markedBy.String
		rec.MarkedBy = &s
	}
	return rec, nil
}

// GetRecord returns the record for k.
func (r *Repository) GetRecord(ctx context.Context, k Key) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE student_id = $1 AND session_id = $2 AND attend_date = $3::date
	`, k.StudentID, k.SessionID, string(k.Date))
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, wrapRead(err, "attendance "+k.String())
	}
	return rec, nil
}

// InsertRecord writes a new record. The (student_id, session_id, attend_date)
// unique constraint surfaces as apperr.ErrDuplicate.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, session_id, attend_date, status, scanned_at, marked_by)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7)
		RETURNING created_at, updated_at
	`, rec.ID, rec.StudentID, rec.SessionID, string(rec.Date), string(rec.Status), rec.ScannedAt, rec.MarkedBy)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, apperr.ErrDuplicate
		}
		return Record{}, wrapStorage(err)
	}
	return rec, nil
}

// UpdateRecord overwrites status and marked_by of an existing record.
func (r *Repository) UpdateRecord(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET status = $4, marked_by = COALESCE($5, marked_by), updated_at = NOW()
		WHERE student_id = $1 AND session_id = $2 AND attend_date = $3::date
		RETURNING `+recordColumns,
		rec.StudentID, rec.SessionID, string(rec.Date), string(rec.Status), rec.MarkedBy)
	out, err := scanRecord(row)
	if err != nil {
		return Record{}, wrapRead(err, "attendance "+rec.Key().String())
	}
	return out, nil
}

// ListRecords returns records matching f ordered by date.
func (r *Repository) ListRecords(ctx context.Context, f RecordFilter) ([]Record, error) {
	q := newWhere()
	if len(f.SessionIDs) > 0 {
		q.args = append(q.args, f.SessionIDs)
		q.clauses = append(q.clauses, fmt.Sprintf("session_id = ANY($%d)", len(q.args)))
	}
	q.add("student_id", f.StudentID)
	if f.From != "" {
		q.args = append(q.args, string(f.From))
		q.clauses = append(q.clauses, fmt.Sprintf("attend_date >= $%d::date", len(q.args)))
	}
	if f.To != "" {
		q.args = append(q.args, string(f.To))
		q.clauses = append(q.clauses, fmt.Sprintf("attend_date <= $%d::date", len(q.args)))
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance_records`+q.sql()+`
		ORDER BY attend_date, student_id, session_id`, q.args...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		res = append(res, rec)
	}
	return res, wrapStorage(rows.Err())
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

// where accumulates equality clauses with positional args.
type where struct {
	clauses []string
	args    []any
}

func newWhere() *where { return &where{} }

func (w *where) add(column, value string) {
	if value == "" {
		return
	}
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func wrapRead(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, what)
	}
	return wrapStorage(err)
}

func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
}
