// Package handler exposes the attendance and report services over gin.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weekendschool/internal/apperr"
	"weekendschool/internal/attendance"
	"weekendschool/internal/cache"
	"weekendschool/internal/qr"
	"weekendschool/internal/report"
)

// Check probes one dependency for /healthz.
type Check func(ctx context.Context) error

// Deps are the collaborators a Handler serves.
type Deps struct {
	Attendance *attendance.Service
	Reports    *report.Service
	Students   attendance.Catalog
	QR         *qr.Codec
	Cache      cache.Reports
	Log        *zap.Logger
	Checks     map[string]Check
}

type Handler struct {
	att      *attendance.Service
	reports  *report.Service
	students attendance.Catalog
	qr       *qr.Codec
	cache    cache.Reports
	log      *zap.Logger
	checks   map[string]Check
}

func New(d Deps) *Handler {
	h := &Handler{
		att:      d.Attendance,
		reports:  d.Reports,
		students: d.Students,
		qr:       d.QR,
		cache:    d.Cache,
		log:      d.Log,
		checks:   d.Checks,
	}
	if h.cache == nil {
		h.cache = cache.Nop{}
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// Routes registers the authenticated API on g.
func (h *Handler) Routes(g *gin.RouterGroup) {
	g.POST("/attendance/scan", h.Scan)
	g.POST("/attendance/manual", h.Manual)
	g.POST("/attendance/correct", h.Correct)

	g.GET("/reports/course", h.CourseReport)
	g.GET("/reports/classes/:classId", h.ClassReport)
	g.GET("/reports/students/:studentId", h.StudentReport)
	g.GET("/reports/sessions", h.SessionReport)
	g.GET("/reports/export", h.Export)

	g.GET("/students/:studentId/qr", h.StudentQR)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{"success": status == http.StatusOK, "data": results})
}

// ---------- Envelope ----------

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": apperr.Message(err)})
}

// Recovery renders panics in the error envelope.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	})
}

// NotFound renders unknown routes in the error envelope.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
}
