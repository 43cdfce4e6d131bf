package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weekendschool/internal/apperr"
	"weekendschool/internal/attendance"
	"weekendschool/internal/auth"
	"weekendschool/internal/policy"
	"weekendschool/internal/qr"
	"weekendschool/internal/report"
)

// ---------- Reports ----------

// CourseReport summarises the caller's course by class.
func (h *Handler) CourseReport(c *gin.Context) {
	p := auth.PrincipalFrom(c)
	courseID, r, err := h.courseScope(c, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	key := fmt.Sprintf("course:%s:%s", r.From, r.To)
	h.cached(c, courseID, key, func() (any, error) {
		return h.reports.CourseOverview(c.Request.Context(), p, courseID, r)
	})
}

// ClassReport breaks one class down by session and student.
func (h *Handler) ClassReport(c *gin.Context) {
	r, err := h.reports.ResolveRange(c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.reports.ClassDetail(c.Request.Context(), auth.PrincipalFrom(c), c.Param("classId"), c.Query("sessionId"), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// StudentReport lists one student's entries.
func (h *Handler) StudentReport(c *gin.Context) {
	r, err := h.reports.ResolveRange(c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.reports.StudentHistory(c.Request.Context(), auth.PrincipalFrom(c), c.Param("studentId"), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// SessionReport reports each session occurrence, optionally for one class and day.
func (h *Handler) SessionReport(c *gin.Context) {
	p := auth.PrincipalFrom(c)
	courseID, r, err := h.courseScope(c, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	var day attendance.Day
	if v := c.Query("day"); v != "" {
		if day, err = attendance.ParseDay(v); err != nil {
			h.fail(c, err)
			return
		}
	}
	classID := c.Query("classId")
	key := fmt.Sprintf("sessions:%s:%s:%s:%s", classID, day, r.From, r.To)
	h.cached(c, courseID, key, func() (any, error) {
		return h.reports.SessionHistory(c.Request.Context(), p, courseID, classID, day, r)
	})
}

// Export streams raw entries as CSV or wraps them in the JSON envelope.
func (h *Handler) Export(c *gin.Context) {
	p := auth.PrincipalFrom(c)
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		h.fail(c, fmt.Errorf("%w: format must be csv or json", apperr.ErrInvalidState))
		return
	}
	courseID, r, err := h.courseScope(c, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.reports.Export(c.Request.Context(), p, courseID, c.Query("classId"), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	if format == "json" {
		ok(c, http.StatusOK, gin.H{"course_id": courseID, "range": r, "entries": entries})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s-%s-%s.csv"`, courseID, r.From, r.To))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, entries); err != nil {
		h.log.Warn("csv export aborted", zap.String("course_id", courseID), zap.Error(err))
	}
}

// ---------- Students ----------

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// StudentQR renders the student's signed payload as a PNG.
func (h *Handler) StudentQR(c *gin.Context) {
	p := auth.PrincipalFrom(c)
	if !p.Authenticated() {
		h.fail(c, apperr.ErrUnauthorized)
		return
	}
	size := defaultQRSize
	if v := c.Query("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			h.fail(c, fmt.Errorf("%w: size must be between %d and %d", apperr.ErrInvalidState, minQRSize, maxQRSize))
			return
		}
		size = parsed
	}
	st, err := h.students.GetStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := policy.Authorize(p, policy.ActionViewQR, policy.Scope{CourseID: st.CourseID, StudentID: st.ID}); err != nil {
		h.fail(c, err)
		return
	}
	payload, err := h.qr.Encode(st.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := qr.PNG(payload, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- helpers ----------

// courseScope resolves the target course and date range and checks the
// caller may read course reports before anything is served from cache.
func (h *Handler) courseScope(c *gin.Context, p policy.Principal) (string, report.Range, error) {
	courseID, err := policy.CourseFor(p, c.Query("courseId"))
	if err != nil {
		return "", report.Range{}, err
	}
	if err := policy.Authorize(p, policy.ActionViewReports, policy.Scope{CourseID: courseID}); err != nil {
		return "", report.Range{}, err
	}
	r, err := h.reports.ResolveRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return "", report.Range{}, err
	}
	return courseID, r, nil
}

// cached serves the rendered envelope for key from the report cache, or
// builds it with load and stores it.
func (h *Handler) cached(c *gin.Context, courseID, key string, load func() (any, error)) {
	body, version, hit := h.cache.Get(c.Request.Context(), courseID, key)
	if hit {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}
	data, err := load()
	if err != nil {
		h.fail(c, err)
		return
	}
	body, err = json.Marshal(gin.H{"success": true, "data": data})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Set(c.Request.Context(), courseID, version, key, body)
	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
