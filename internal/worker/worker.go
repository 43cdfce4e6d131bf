// Package worker consumes attendance events off the queue.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"weekendschool/internal/attendance"
	"weekendschool/internal/cache"
	"weekendschool/internal/metrics"
	"weekendschool/internal/queue"
)

// Worker invalidates cached reports for every recorded mark and raises a
// notification when a student scanned into the wrong session.
type Worker struct {
	cache   cache.Reports
	catalog attendance.Catalog
	log     *zap.Logger
}

// New creates a worker. catalog may be nil, in which case notifications carry
// ids only.
func New(c cache.Reports, catalog attendance.Catalog, log *zap.Logger) *Worker {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{cache: c, catalog: catalog, log: log}
}

// Run handles messages until ctx is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info("worker started")
	for msg := range messages {
		result := "ok"
		if err := w.Handle(ctx, msg); err != nil {
			result = "error"
			if errors.Is(err, errUnknownType) {
				result = "skipped"
			}
			w.log.Warn("message failed", zap.String("type", msg.Type), zap.Error(err))
		}
		metrics.EventsProcessed.WithLabelValues(msg.Type, result).Inc()
	}
	w.log.Info("worker stopped")
	return ctx.Err()
}

var errUnknownType = errors.New("unknown message type")

// Handle processes one message.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceRecorded {
		return errUnknownType
	}
	evt, err := queue.DecodeAttendance(msg)
	if err != nil {
		return err
	}
	if err := w.cache.Invalidate(ctx, evt.CourseID); err != nil {
		return err
	}
	if attendance.Status(evt.Status) == attendance.StatusWrongSession {
		w.notifyWrongSession(ctx, evt)
	}
	return nil
}

func (w *Worker) notifyWrongSession(ctx context.Context, evt queue.AttendanceEvent) {
	fields := []zap.Field{
		zap.String("student_id", evt.StudentID),
		zap.String("session_id", evt.SessionID),
		zap.String("date", evt.Date),
	}
	if w.catalog != nil {
		if st, err := w.catalog.GetStudent(ctx, evt.StudentID); err == nil {
			fields = append(fields, zap.String("student", st.Name))
			if sat, err := w.catalog.GetSession(ctx, evt.SessionID); err == nil {
				if expected := st.AssignedFor(sat.Day); expected != "" {
					if es, err := w.catalog.GetSession(ctx, expected); err == nil {
						fields = append(fields, zap.String("expected", es.Describe()))
					}
				}
			}
		}
	}
	w.log.Info("wrong session notification", fields...)
}
