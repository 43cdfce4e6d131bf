package attendance

import (
	"fmt"

	"weekendschool/internal/apperr"
)

// Classify decides the status of a scan of student into target. It does not
// consult the ledger. A student with no assignment on the target's day is
// reported as ErrInvalidState and must not be recorded.
func Classify(student Student, target Session) (Status, error) {
	assigned := student.AssignedFor(target.Day)
	if assigned == "" {
		return "", fmt.Errorf("%w: student %s is not enrolled for %s", apperr.ErrInvalidState, student.ID, target.Day.Title())
	}
	if assigned == target.ID {
		return StatusPresent, nil
	}
	return StatusWrongSession, nil
}

// Label renders the UI feedback for a write outcome. expected is the student's
// assigned session for the day and is only used for WRONG_SESSION.
func Label(status Status, created bool, expected *Session) string {
	switch status {
	case StatusPresent:
		if !created {
			return "already marked present"
		}
		return "marked present"
	case StatusAbsent:
		if !created {
			return "already marked absent"
		}
		return "marked absent"
	case StatusWrongSession:
		label := "wrong session"
		if !created {
			label = "already marked wrong session"
		}
		if expected != nil {
			label += " - expected " + expected.Describe()
		}
		return label
	}
	return string(status)
}
