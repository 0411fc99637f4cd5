package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/internal/dto"
	"github.com/noah-isme/academy-enrollment-api/internal/gateway"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	"github.com/noah-isme/academy-enrollment-api/pkg/database"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

// SpecialsCacheKey holds the currently valid specials.
const SpecialsCacheKey = "specials:active"

type specialStore interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Special, error)
	ListActive(ctx context.Context) ([]models.Special, error)
	Deactivate(ctx context.Context, ids []string) (int64, error)
	Create(ctx context.Context, special *models.Special) error
}

type couponCreator interface {
	Configured() bool
	CreateCoupon(ctx context.Context, coupon gateway.Coupon) (*gateway.Coupon, error)
}

type specialsCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// SpecialsService keeps the local coupon mirror consistent with the CRM.
type SpecialsService struct {
	store     specialStore
	crm       couponCreator
	outbox    compensator
	cache     specialsCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSpecialsService constructs the service.
func NewSpecialsService(store specialStore, crm couponCreator, outbox compensator, cache specialsCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SpecialsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpecialsService{
		store:     store,
		crm:       crm,
		outbox:    outbox,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ActiveSpecials returns the specials that have not expired. Expired rows are
// deactivated on the way and their CRM coupons queued for deletion. Failures
// degrade to an empty list.
func (s *SpecialsService) ActiveSpecials(ctx context.Context) dto.SpecialsResponse {
	now := s.now()

	var cached []models.Special
	if s.cache.Get(ctx, SpecialsCacheKey, &cached) {
		valid, expired := partitionSpecials(cached, now)
		if len(expired) == 0 {
			return toPublicSpecials(valid)
		}
	}

	specials, err := s.store.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list specials", zap.Error(err))
		return dto.SpecialsResponse{Specials: []dto.PublicSpecial{}}
	}

	valid, expired := partitionSpecials(specials, now)
	if len(expired) > 0 && !s.expire(ctx, expired) {
		// rows still flagged active; the next read retries the deactivation
		return toPublicSpecials(valid)
	}
	s.cache.Set(ctx, SpecialsCacheKey, valid, s.cacheTTL)
	return toPublicSpecials(valid)
}

// expire deactivates the given specials and queues their CRM coupon removal.
// It reports false when the store could not be updated.
func (s *SpecialsService) expire(ctx context.Context, expired []models.Special) bool {
	ids := make([]string, 0, len(expired))
	for _, special := range expired {
		ids = append(ids, special.ID)
	}
	affected, err := s.store.Deactivate(ctx, ids)
	if err != nil {
		s.logger.Error("failed to deactivate expired specials", zap.Strings("ids", ids), zap.Error(err))
		return false
	}
	s.logger.Info("expired specials deactivated", zap.Int64("count", affected))
	for _, special := range expired {
		s.outbox.DeleteCRMCoupon(special.CouponCode)
	}
	return true
}

// ListActive returns every special still flagged active, for admins.
func (s *SpecialsService) ListActive(ctx context.Context) ([]models.Special, error) {
	specials, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list specials")
	}
	return specials, nil
}

// Create registers a coupon locally and, best effort, in the CRM.
func (s *SpecialsService) Create(ctx context.Context, req dto.CreateSpecialRequest) (*models.Special, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid special payload")
	}
	code := models.NormalizeCouponCode(req.CouponCode)
	kind := models.DiscountType(req.DiscountType)
	if kind == models.DiscountPercentage && req.DiscountValue > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "percentage discount cannot exceed 100")
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "validUntil must not precede validFrom")
	}

	if _, err := s.store.FindActiveByCode(ctx, code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an active special already uses this code")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check special code")
	}

	special := &models.Special{
		CouponCode:    code,
		CouponName:    req.CouponName,
		DiscountType:  kind,
		DiscountValue: req.DiscountValue,
		CourseIDs:     pq.StringArray(req.CourseIDs),
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Active:        true,
	}

	if s.crm.Configured() {
		coupon := gateway.Coupon{Name: special.CouponName, Code: code, DiscountType: string(kind), DiscountValue: special.DiscountValue}
		if special.ValidFrom != nil {
			coupon.StartDate = special.ValidFrom.UTC().Format(time.RFC3339)
		}
		if special.ValidUntil != nil {
			coupon.EndDate = special.ValidUntil.UTC().Format(time.RFC3339)
		}
		created, err := s.crm.CreateCoupon(ctx, coupon)
		if err != nil {
			s.logger.Warn("crm coupon create failed; keeping local special only", zap.String("code", code), zap.Error(err))
		} else if created.ID != "" {
			special.CRMCouponID = &created.ID
		}
	}

	if err := s.store.Create(ctx, special); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an active special already uses this code")
		}
		return nil, appErrors.Internal(err, "failed to save special")
	}
	s.cache.Invalidate(ctx, SpecialsCacheKey)
	return special, nil
}

// Deactivate retires a code locally and queues its CRM deletion.
func (s *SpecialsService) Deactivate(ctx context.Context, code string) error {
	special, err := s.store.FindActiveByCode(ctx, models.NormalizeCouponCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "special not found")
		}
		return appErrors.Internal(err, "failed to load special")
	}
	if _, err := s.store.Deactivate(ctx, []string{special.ID}); err != nil {
		return appErrors.Internal(err, "failed to deactivate special")
	}
	s.outbox.DeleteCRMCoupon(special.CouponCode)
	s.cache.Invalidate(ctx, SpecialsCacheKey)
	return nil
}

func partitionSpecials(specials []models.Special, now time.Time) (valid, expired []models.Special) {
	valid = make([]models.Special, 0, len(specials))
	for _, special := range specials {
		if special.Expired(now) {
			expired = append(expired, special)
			continue
		}
		valid = append(valid, special)
	}
	return valid, expired
}

func toPublicSpecials(specials []models.Special) dto.SpecialsResponse {
	out := make([]dto.PublicSpecial, 0, len(specials))
	for _, special := range specials {
		courseIDs := []string(special.CourseIDs)
		if courseIDs == nil {
			courseIDs = []string{}
		}
		out = append(out, dto.PublicSpecial{
			CouponCode:    special.CouponCode,
			CouponName:    special.CouponName,
			DiscountType:  string(special.DiscountType),
			DiscountValue: special.DiscountValue,
			CourseIDs:     courseIDs,
		})
	}
	return dto.SpecialsResponse{Specials: out}
}
