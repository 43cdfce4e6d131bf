package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"weekendschool/internal/apperr"
)

func TestClassify(t *testing.T) {
	student := Student{ID: "s1", SaturdaySession: "sat-a", SundaySession: "sun-b"}
	satOnly := Student{ID: "s2", SaturdaySession: "sat-c"}

	tests := []struct {
		name    string
		student Student
		target  Session
		want    Status
		wantErr error
	}{
		{name: "assigned saturday", student: student, target: Session{ID: "sat-a", Day: Saturday}, want: StatusPresent},
		{name: "assigned sunday", student: student, target: Session{ID: "sun-b", Day: Sunday}, want: StatusPresent},
		{name: "other saturday slot", student: student, target: Session{ID: "sat-c", Day: Saturday}, want: StatusWrongSession},
		{name: "no sunday assignment", student: satOnly, target: Session{ID: "sun-b", Day: Sunday}, wantErr: apperr.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.student, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabel(t *testing.T) {
	expected := &Session{ClassName: "Class A", Day: Saturday, StartTime: "09:00", EndTime: "11:00"}

	assert.Equal(t, "marked present", Label(StatusPresent, true, nil))
	assert.Equal(t, "already marked present", Label(StatusPresent, false, nil))
	assert.Equal(t, "marked absent", Label(StatusAbsent, true, nil))
	assert.Equal(t, "wrong session - expected Class A Saturday 09:00-11:00", Label(StatusWrongSession, true, expected))
	assert.Equal(t, "already marked wrong session", Label(StatusWrongSession, false, nil))
}
