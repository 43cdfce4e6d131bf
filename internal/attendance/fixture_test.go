package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weekendschool/internal/policy"
	"weekendschool/internal/qr"
)

// saturday is 2026-10-10 10:00 UTC.
var saturday = time.Date(2026, 10, 10, 10, 0, 0, 0, time.UTC)

func testFixture() Fixture {
	return Fixture{
		Courses: []Course{{ID: "c1", Name: "Weekend Arabic"}, {ID: "c2", Name: "Weekend Maths"}},
		Classes: []Class{
			{ID: "cls-a", CourseID: "c1", Name: "Class A"},
			{ID: "cls-x", CourseID: "c2", Name: "Class X"},
		},
		Sessions: []Session{
			{ID: "sat-a", ClassID: "cls-a", Day: Saturday, StartTime: "09:00", EndTime: "11:00", Capacity: 20},
			{ID: "sat-c", ClassID: "cls-a", Day: Saturday, StartTime: "11:30", EndTime: "13:30", Capacity: 20},
			{ID: "sun-b", ClassID: "cls-a", Day: Sunday, StartTime: "09:00", EndTime: "11:00", Capacity: 20},
			{ID: "x-sat", ClassID: "cls-x", Day: Saturday, StartTime: "09:00", EndTime: "11:00", Capacity: 10},
		},
		Students: []Student{
			{ID: "s1", CourseID: "c1", ClassID: "cls-a", Name: "Amina", SaturdaySession: "sat-a", SundaySession: "sun-b"},
			{ID: "s2", CourseID: "c1", ClassID: "cls-a", Name: "Bilal", SaturdaySession: "sat-c"},
			{ID: "s3", CourseID: "c1", ClassID: "cls-a", Name: "Gone", SaturdaySession: "sat-a", Deleted: true},
			{ID: "sx", CourseID: "c2", ClassID: "cls-x", Name: "Xena", SaturdaySession: "x-sat"},
		},
	}
}

var (
	headTeacher  = policy.Principal{UserID: "t-head", Role: policy.RoleTeacher, TeacherRole: policy.TeacherHead, CourseID: "c1"}
	extraTeacher = policy.Principal{UserID: "t-extra", Role: policy.RoleTeacher, TeacherRole: policy.TeacherAdditional, CourseID: "c1"}
	otherTeacher = policy.Principal{UserID: "t-other", Role: policy.RoleTeacher, TeacherRole: policy.TeacherHead, CourseID: "c2"}
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	m.now = func() time.Time { return saturday }
	require.NoError(t, m.Seed(testFixture()))
	return m
}

func newTestCodec(t *testing.T) *qr.Codec {
	t.Helper()
	c, err := qr.NewCodec("test-qr-key", "test")
	require.NoError(t, err)
	return c
}

func payloadFor(t *testing.T, c *qr.Codec, studentID string) string {
	t.Helper()
	p, err := c.Encode(studentID)
	require.NoError(t, err)
	return p
}
