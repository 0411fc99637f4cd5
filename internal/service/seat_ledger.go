package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type scheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseSchedule, error)
	Reserve(ctx context.Context, id string) (*models.CourseSchedule, bool, error)
	Release(ctx context.Context, id string) (*models.CourseSchedule, error)
	Reconcile(ctx context.Context, id string) (*models.CourseSchedule, error)
}

// Seat ledger operations, used as metric labels.
const (
	SeatOpReserve   = "reserve"
	SeatOpRelease   = "release"
	SeatOpReconcile = "reconcile"
)

// SeatLedger moves the per-schedule seat counter. Every mutation is a single
// conditional statement so concurrent buyers can never oversell.
type SeatLedger struct {
	schedules scheduleStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewSeatLedger constructs the ledger.
func NewSeatLedger(schedules scheduleStore, metrics *MetricsService, logger *zap.Logger) *SeatLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatLedger{schedules: schedules, metrics: metrics, logger: logger}
}

// Reserve takes one seat. It fails with ErrSoldOut when none is left and
// ErrNotFound when the schedule does not exist.
func (l *SeatLedger) Reserve(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	schedule, applied, err := l.schedules.Reserve(ctx, scheduleID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		l.metrics.RecordSeatAdjustment(SeatOpReserve, "not_found")
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	case err != nil:
		l.metrics.RecordSeatAdjustment(SeatOpReserve, "error")
		return nil, appErrors.Internal(err, "failed to reserve seat")
	case !applied:
		l.metrics.RecordSeatAdjustment(SeatOpReserve, "sold_out")
		return schedule, appErrors.Clone(appErrors.ErrSoldOut, "no seats left on this schedule")
	}
	l.metrics.RecordSeatAdjustment(SeatOpReserve, "ok")
	l.logger.Debug("seat reserved",
		zap.String("schedule_id", scheduleID),
		zap.Int("spots_available", schedule.SpotsAvailable),
		zap.String("status", string(schedule.Status)))
	return schedule, nil
}

// Release returns one seat, never exceeding the schedule's capacity.
func (l *SeatLedger) Release(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	schedule, err := l.schedules.Release(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.metrics.RecordSeatAdjustment(SeatOpRelease, "not_found")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		l.metrics.RecordSeatAdjustment(SeatOpRelease, "error")
		return nil, appErrors.Internal(err, "failed to release seat")
	}
	l.metrics.RecordSeatAdjustment(SeatOpRelease, "ok")
	return schedule, nil
}

// Reconcile recomputes availability from the enrollments holding a seat.
func (l *SeatLedger) Reconcile(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	schedule, err := l.schedules.Reconcile(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		l.metrics.RecordSeatAdjustment(SeatOpReconcile, "error")
		return nil, appErrors.Internal(err, "failed to reconcile seats")
	}
	l.metrics.RecordSeatAdjustment(SeatOpReconcile, "ok")
	l.logger.Info("schedule reconciled",
		zap.String("schedule_id", scheduleID),
		zap.Int("spots_available", schedule.SpotsAvailable),
		zap.Int("spots_total", schedule.SpotsTotal))
	return schedule, nil
}

// Get returns a schedule by id.
func (l *SeatLedger) Get(ctx context.Context, scheduleID string) (*models.CourseSchedule, error) {
	schedule, err := l.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	return schedule, nil
}
