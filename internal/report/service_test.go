package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendschool/internal/apperr"
	"weekendschool/internal/attendance"
	"weekendschool/internal/policy"
)

// wednesday is 2026-10-14 12:00 UTC; the two previous Saturdays are 10-03 and 10-10.
var wednesday = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

var (
	teacher = policy.Principal{UserID: "t1", Role: policy.RoleTeacher, TeacherRole: policy.TeacherAdditional, CourseID: "c1"}
	amina   = policy.Principal{UserID: "u1", Role: policy.RoleStudent, CourseID: "c1", StudentID: "s1"}
)

func newReportStore(t *testing.T) *attendance.MemoryStore {
	t.Helper()
	store := attendance.NewMemoryStore()
	require.NoError(t, store.Seed(attendance.Fixture{
		Classes: []attendance.Class{
			{ID: "cls-a", CourseID: "c1", Name: "Class A"},
			{ID: "cls-b", CourseID: "c1", Name: "Class B"},
		},
		Sessions: []attendance.Session{
			{ID: "sat-a", ClassID: "cls-a", Day: attendance.Saturday, StartTime: "09:00", EndTime: "11:00"},
			{ID: "sun-a", ClassID: "cls-a", Day: attendance.Sunday, StartTime: "09:00", EndTime: "11:00"},
			{ID: "sat-b", ClassID: "cls-b", Day: attendance.Saturday, StartTime: "09:00", EndTime: "11:00"},
		},
		Students: []attendance.Student{
			{ID: "s1", CourseID: "c1", ClassID: "cls-a", Name: "Amina", SaturdaySession: "sat-a", SundaySession: "sun-a"},
			{ID: "s2", CourseID: "c1", ClassID: "cls-a", Name: "Bilal", SaturdaySession: "sat-a"},
			{ID: "s3", CourseID: "c1", ClassID: "cls-b", Name: "Chidi", SaturdaySession: "sat-b"},
		},
	}))
	ctx := context.Background()
	for _, r := range []attendance.Record{
		{StudentID: "s1", SessionID: "sat-a", Date: "2026-10-03", Status: attendance.StatusPresent},
		{StudentID: "s1", SessionID: "sat-a", Date: "2026-10-10", Status: attendance.StatusPresent},
		{StudentID: "s1", SessionID: "sun-a", Date: "2026-10-11", Status: attendance.StatusAbsent},
		{StudentID: "s2", SessionID: "sat-a", Date: "2026-10-03", Status: attendance.StatusPresent},
		{StudentID: "s3", SessionID: "sat-b", Date: "2026-10-10", Status: attendance.StatusPresent},
	} {
		_, err := store.InsertRecord(ctx, r)
		require.NoError(t, err)
	}
	return store
}

func newReportService(t *testing.T) (*Service, *attendance.MemoryStore) {
	store := newReportStore(t)
	return NewService(store, time.UTC, func() time.Time { return wednesday }), store
}

func fixedRange() Range { return Range{From: "2026-10-01", To: "2026-10-14"} }

func TestCourseOverview(t *testing.T) {
	svc, store := newReportService(t)
	before := store.Len()

	rep, err := svc.CourseOverview(context.Background(), teacher, "c1", fixedRange())
	require.NoError(t, err)

	// sat-a: 2 students x 2 Saturdays, sun-a: 1 x 2 Sundays (10-04, 10-11), sat-b: 1 x 2.
	assert.Equal(t, 8, rep.Totals.Expected)
	assert.Equal(t, 4, rep.Totals.Present)
	assert.Equal(t, 4, rep.Totals.Absent)
	assert.Equal(t, 3, rep.Totals.Inferred)
	assert.Equal(t, 50, rep.Totals.Rate)
	require.Len(t, rep.Classes, 2)
	assert.Equal(t, "cls-a", rep.Classes[0].ID)
	assert.Equal(t, 6, rep.Classes[0].Expected)
	assert.Equal(t, store.Len(), before)
}

func TestClassDetailSessionFilter(t *testing.T) {
	svc, _ := newReportService(t)
	rep, err := svc.ClassDetail(context.Background(), teacher, "cls-a", "sat-a", fixedRange())
	require.NoError(t, err)
	require.Len(t, rep.Sessions, 1)
	assert.Equal(t, 3, rep.Totals.Present)
	assert.Equal(t, 1, rep.Totals.Absent)
	assert.Equal(t, 75, rep.Totals.Rate)
	require.Len(t, rep.Students, 2)

	_, err = svc.ClassDetail(context.Background(), teacher, "missing", "", fixedRange())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStudentHistory(t *testing.T) {
	svc, _ := newReportService(t)

	rep, err := svc.StudentHistory(context.Background(), amina, "s1", fixedRange())
	require.NoError(t, err)
	assert.Equal(t, "Amina", rep.Student.Name)
	assert.Len(t, rep.Entries, 4)
	assert.Equal(t, 2, rep.Totals.Present)
	assert.Equal(t, 2, rep.Totals.Absent)

	_, err = svc.StudentHistory(context.Background(), amina, "s2", fixedRange())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestStudentHistoryIncludesOtherClassScans(t *testing.T) {
	svc, store := newReportService(t)
	_, err := store.InsertRecord(context.Background(), attendance.Record{
		StudentID: "s1", SessionID: "sat-b", Date: "2026-10-03", Status: attendance.StatusWrongSession,
	})
	require.NoError(t, err)

	rep, err := svc.StudentHistory(context.Background(), amina, "s1", fixedRange())
	require.NoError(t, err)
	assert.Len(t, rep.Entries, 5)
	assert.Equal(t, 1, rep.Totals.WrongSession)
	assert.Equal(t, 4, rep.Totals.Expected, "a visit elsewhere does not widen expected")
}

func TestSessionHistoryDayFilter(t *testing.T) {
	svc, _ := newReportService(t)
	rep, err := svc.SessionHistory(context.Background(), teacher, "c1", "", attendance.Sunday, fixedRange())
	require.NoError(t, err)
	require.Len(t, rep.Occurrences, 2)
	assert.Equal(t, attendance.Date("2026-10-04"), rep.Occurrences[0].Date)
	assert.Equal(t, 1, rep.Occurrences[0].Inferred)
}

func TestReportsAuthorization(t *testing.T) {
	svc, _ := newReportService(t)
	ctx := context.Background()

	_, err := svc.CourseOverview(ctx, amina, "c1", fixedRange())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Export(ctx, teacher, "c2", "", fixedRange())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.CourseOverview(ctx, policy.Principal{}, "c1", fixedRange())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	entries, err := svc.Export(ctx, teacher, "c1", "cls-b", fixedRange())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestResolveRange(t *testing.T) {
	svc, _ := newReportService(t)

	r, err := svc.ResolveRange("", "")
	require.NoError(t, err)
	assert.Equal(t, Range{From: "2026-09-17", To: "2026-10-14"}, r)

	r, err = svc.ResolveRange("2026-10-01", "2026-10-05")
	require.NoError(t, err)
	assert.Equal(t, attendance.Date("2026-10-01"), r.From)

	_, err = svc.ResolveRange("2026-10-06", "2026-10-05")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	// both ends are inclusive
	r, err = svc.ResolveRange("2024-01-01", "2024-12-31")
	require.NoError(t, err, "366 days")
	assert.Equal(t, attendance.Date("2024-12-31"), r.To)
	_, err = svc.ResolveRange("2025-01-01", "2026-01-01")
	require.NoError(t, err, "366 days")
	_, err = svc.ResolveRange("2025-01-01", "2026-01-02")
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "367 days")
	_, err = svc.ResolveRange("2024-01-01", "2026-10-05")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = svc.ResolveRange("yesterday", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}
