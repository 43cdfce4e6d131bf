// Package policy is the single authorization gate consulted by every endpoint.
package policy

import (
	"fmt"

	"weekendschool/internal/apperr"
)

// Role is the top-level caller kind.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// TeacherRole distinguishes head teachers from additional teachers.
type TeacherRole string

const (
	TeacherHead       TeacherRole = "HEAD"
	TeacherAdditional TeacherRole = "ADDITIONAL"
)

// Principal is the authenticated caller. Teachers and students are bound to
// one course; admins are not.
type Principal struct {
	UserID      string      `json:"user_id"`
	Role        Role        `json:"role"`
	TeacherRole TeacherRole `json:"teacher_role,omitempty"`
	CourseID    string      `json:"course_id,omitempty"`
	StudentID   string      `json:"student_id,omitempty"`
}

// Authenticated reports whether p carries a usable identity.
func (p Principal) Authenticated() bool {
	switch p.Role {
	case RoleAdmin:
		return p.UserID != ""
	case RoleTeacher:
		return p.UserID != "" && p.CourseID != ""
	case RoleStudent:
		return p.StudentID != "" && p.CourseID != ""
	}
	return false
}

// Action is something a caller attempts.
type Action string

const (
	ActionScan        Action = "attendance.scan"
	ActionMark        Action = "attendance.mark"
	ActionCorrect     Action = "attendance.correct"
	ActionViewReports Action = "reports.view"
	ActionViewStudent Action = "reports.student"
	ActionExport      Action = "reports.export"
	ActionViewQR      Action = "students.qr"
)

// Scope is the resource an action targets.
type Scope struct {
	CourseID  string
	StudentID string
}

var teacherActions = map[Action]bool{
	ActionScan:        true,
	ActionMark:        true,
	ActionViewReports: true,
	ActionViewStudent: true,
	ActionExport:      true,
	ActionViewQR:      true,
}

// Authorize returns nil when p may perform a on s, apperr.ErrUnauthorized for
// an anonymous caller and apperr.ErrForbidden otherwise.
func Authorize(p Principal, a Action, s Scope) error {
	if !p.Authenticated() {
		return apperr.ErrUnauthorized
	}
	switch p.Role {
	case RoleAdmin:
		return nil
	case RoleTeacher:
		if s.CourseID != p.CourseID {
			return fmt.Errorf("%w: course %s is not yours", apperr.ErrForbidden, s.CourseID)
		}
		if a == ActionCorrect {
			if p.TeacherRole != TeacherHead {
				return fmt.Errorf("%w: only head teachers may correct attendance", apperr.ErrForbidden)
			}
			return nil
		}
		if !teacherActions[a] {
			return fmt.Errorf("%w: %s", apperr.ErrForbidden, a)
		}
		return nil
	case RoleStudent:
		if a != ActionViewStudent && a != ActionViewQR {
			return fmt.Errorf("%w: %s", apperr.ErrForbidden, a)
		}
		if s.CourseID != p.CourseID || s.StudentID != p.StudentID {
			return fmt.Errorf("%w: students may only view themselves", apperr.ErrForbidden)
		}
		return nil
	}
	return apperr.ErrUnauthorized
}

// CourseFor resolves which course a course-wide read targets. Admins must name
// one; everyone else is pinned to their own and may not ask for another.
func CourseFor(p Principal, requested string) (string, error) {
	if !p.Authenticated() {
		return "", apperr.ErrUnauthorized
	}
	if p.Role == RoleAdmin {
		if requested == "" {
			return "", fmt.Errorf("%w: courseId is required", apperr.ErrInvalidState)
		}
		return requested, nil
	}
	if requested != "" && requested != p.CourseID {
		return "", fmt.Errorf("%w: course %s is not yours", apperr.ErrForbidden, requested)
	}
	return p.CourseID, nil
}
