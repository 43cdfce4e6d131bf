package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weekendschool/internal/attendance"
	"weekendschool/internal/auth"
)

// ---------- Attendance ----------

type scanRequest struct {
	Payload   string `json:"payload" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

// Scan records a camera scan of a student's QR payload.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	out, err := h.att.Mark(c.Request.Context(), auth.PrincipalFrom(c), attendance.Scan(req.Payload, req.SessionID))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, markStatus(out), out)
}

type manualRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Date      string `json:"date" binding:"omitempty,civildate"`
}

// Manual records a teacher's explicit PRESENT or ABSENT mark.
func (h *Handler) Manual(c *gin.Context) {
	var req manualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	var date attendance.Date
	if req.Date != "" {
		if date, err = attendance.ParseDate(req.Date); err != nil {
			h.fail(c, err)
			return
		}
	}
	in := attendance.Manual(req.StudentID, req.SessionID, status, date)
	out, err := h.att.Mark(c.Request.Context(), auth.PrincipalFrom(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, markStatus(out), out)
}

type correctRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Date      string `json:"date" binding:"required,civildate"`
}

// Correct overwrites a recorded status.
func (h *Handler) Correct(c *gin.Context) {
	var req correctRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	status, err := attendance.ParseStatus(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.att.Correct(c.Request.Context(), auth.PrincipalFrom(c), attendance.CorrectInput{
		StudentID: req.StudentID,
		SessionID: req.SessionID,
		Date:      date,
		Status:    status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	// Updates publish no event, so drop cached reports here.
	if err := h.cache.Invalidate(c.Request.Context(), out.Session.CourseID); err != nil {
		h.log.Warn("report cache invalidate failed", zap.String("course_id", out.Session.CourseID), zap.Error(err))
	}
	ok(c, markStatus(out), out)
}

func markStatus(out attendance.Outcome) int {
	if out.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}
