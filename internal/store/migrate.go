package store

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS classes (
	id         TEXT PRIMARY KEY,
	course_id  TEXT NOT NULL REFERENCES courses(id),
	name       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	class_id    TEXT NOT NULL REFERENCES classes(id),
	day         TEXT NOT NULL CHECK (day IN ('SATURDAY', 'SUNDAY')),
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	capacity    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS students (
	id                   TEXT PRIMARY KEY,
	course_id            TEXT NOT NULL REFERENCES courses(id),
	class_id             TEXT NOT NULL REFERENCES classes(id),
	name                 TEXT NOT NULL,
	saturday_session_id  TEXT REFERENCES sessions(id),
	sunday_session_id    TEXT REFERENCES sessions(id),
	deleted_at           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL REFERENCES students(id),
	session_id   TEXT NOT NULL REFERENCES sessions(id),
	attend_date  DATE NOT NULL,
	status       TEXT NOT NULL CHECK (status IN ('PRESENT', 'ABSENT', 'WRONG_SESSION')),
	scanned_at   TIMESTAMPTZ,
	marked_by    TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (student_id, session_id, attend_date)
);

CREATE INDEX IF NOT EXISTS idx_records_session_date ON attendance_records(session_id, attend_date);
CREATE INDEX IF NOT EXISTS idx_records_student ON attendance_records(student_id);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
