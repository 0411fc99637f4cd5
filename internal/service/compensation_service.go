package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/jobs"
)

// Outbox task types.
const (
	TaskCRMCouponDelete = "crm.coupon.delete"
	TaskSeatRelease     = "seat.release"
	TaskSeatReserve     = "seat.reserve"
)

// CouponTask identifies a CRM coupon by code.
type CouponTask struct {
	Code string `json:"code"`
}

// SeatTask identifies a schedule whose counter must move.
type SeatTask struct {
	ScheduleID string `json:"scheduleId"`
}

type jobQueue interface {
	Register(jobType string, handler jobs.Handler)
	Enqueue(job jobs.Job) error
}

type couponDeleter interface {
	Configured() bool
	DeleteCouponByCode(ctx context.Context, code string) error
}

type seatMover interface {
	Reserve(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
	Release(ctx context.Context, scheduleID string) (*models.CourseSchedule, error)
}

// compensator is what the domain services use to defer best-effort work.
type compensator interface {
	DeleteCRMCoupon(code string)
	ReleaseSeat(scheduleID string)
	ReserveSeat(scheduleID string)
}

// CompensationService routes best-effort side effects through the job queue
// so failures are retried and visible in logs and metrics.
type CompensationService struct {
	queue  jobQueue
	crm    couponDeleter
	seats  seatMover
	logger *zap.Logger
}

// NewCompensationService registers the task handlers on queue.
func NewCompensationService(queue jobQueue, crm couponDeleter, seats seatMover, logger *zap.Logger) *CompensationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CompensationService{queue: queue, crm: crm, seats: seats, logger: logger}
	queue.Register(TaskCRMCouponDelete, s.handleCouponDelete)
	queue.Register(TaskSeatRelease, s.handleSeatRelease)
	queue.Register(TaskSeatReserve, s.handleSeatReserve)
	return s
}

// DeleteCRMCoupon schedules removal of code from the CRM.
func (s *CompensationService) DeleteCRMCoupon(code string) {
	s.enqueue(TaskCRMCouponDelete, CouponTask{Code: models.NormalizeCouponCode(code)})
}

// ReleaseSeat schedules a seat release.
func (s *CompensationService) ReleaseSeat(scheduleID string) {
	s.enqueue(TaskSeatRelease, SeatTask{ScheduleID: scheduleID})
}

// ReserveSeat schedules a seat reservation retry.
func (s *CompensationService) ReserveSeat(scheduleID string) {
	s.enqueue(TaskSeatReserve, SeatTask{ScheduleID: scheduleID})
}

func (s *CompensationService) enqueue(taskType string, payload interface{}) {
	if err := s.queue.Enqueue(jobs.Job{Type: taskType, Payload: payload}); err != nil {
		s.logger.Error("failed to enqueue compensating task",
			zap.String("type", taskType), zap.Any("payload", payload), zap.Error(err))
	}
}

func (s *CompensationService) handleCouponDelete(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(CouponTask)
	if !ok || task.Code == "" {
		return nil
	}
	if !s.crm.Configured() {
		s.logger.Debug("crm not configured, skipping coupon delete", zap.String("code", task.Code))
		return nil
	}
	if err := s.crm.DeleteCouponByCode(ctx, task.Code); err != nil {
		return fmt.Errorf("delete crm coupon %s: %w", task.Code, err)
	}
	s.logger.Info("crm coupon deleted", zap.String("code", task.Code))
	return nil
}

func (s *CompensationService) handleSeatRelease(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(SeatTask)
	if !ok || task.ScheduleID == "" {
		return nil
	}
	if _, err := s.seats.Release(ctx, task.ScheduleID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *CompensationService) handleSeatReserve(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(SeatTask)
	if !ok || task.ScheduleID == "" {
		return nil
	}
	if _, err := s.seats.Reserve(ctx, task.ScheduleID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) || errors.Is(err, appErrors.ErrSoldOut) {
			s.logger.Warn("deferred seat reserve not applied", zap.String("schedule_id", task.ScheduleID), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}
