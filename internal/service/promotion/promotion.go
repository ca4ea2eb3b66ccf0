// internal/service/promotion/promotion.go
package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentmarket-service/internal/domain/promotion"
	xerrors "talentmarket-service/internal/pkg/errors"
	"talentmarket-service/internal/pkg/metrics"

	"go.uber.org/zap"
)

// OfferRepository is the persistence the offer service needs. RecordUsage must
// be a single compare-and-increment: it fails with ErrUsageLimitReached or
// ErrPerUserLimitReached instead of exceeding either cap, and with
// ErrOfferUnavailable when the offer stopped being redeemable after it was
// validated.
type OfferRepository interface {
	Create(ctx context.Context, o *promotion.PromotionalOffer) error
	FindByID(ctx context.Context, id int64) (*promotion.PromotionalOffer, error)
	FindByCode(ctx context.Context, code string) (*promotion.PromotionalOffer, error)
	Update(ctx context.Context, o *promotion.PromotionalOffer) error
	UpdateStatus(ctx context.Context, id int64, status promotion.OfferStatus, isActive bool, now time.Time) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters *promotion.OfferListFilters, now time.Time) ([]promotion.PromotionalOffer, int64, error)
	GetActive(ctx context.Context, now time.Time) ([]promotion.PromotionalOffer, error)
	GetStats(ctx context.Context, now time.Time) (*promotion.OfferStats, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	RecordUsage(ctx context.Context, offerID, userID int64, now time.Time) (*promotion.PromotionalOffer, error)
}

type OfferService struct {
	repo    OfferRepository
	metrics *metrics.Recorder
	now     func() time.Time
	logger  *zap.Logger
}

func NewOfferService(repo OfferRepository, recorder *metrics.Recorder, clock func() time.Time, logger *zap.Logger) *OfferService {
	if clock == nil {
		clock = time.Now
	}
	return &OfferService{
		repo:    repo,
		metrics: recorder,
		now:     clock,
		logger:  logger,
	}
}

// ========== Code validation & redemption ==========

// ValidateCode runs the redemption checks in order and stops at the first
// failure. It never writes; a failed check comes back as Valid=false with a
// predefined reason, not as an error.
func (s *OfferService) ValidateCode(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", xerrors.ErrInvalidInput)
	}

	res, err := s.validate(ctx, code, userID, service, price)
	if err != nil {
		return nil, err
	}
	s.metrics.CodeValidated(resultLabel(res))
	return res, nil
}

func (s *OfferService) validate(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error) {
	invalid := func(reason string) *promotion.ValidationResult {
		return &promotion.ValidationResult{
			Valid:           false,
			Reason:          reason,
			OriginalPrice:   price,
			DiscountedPrice: price,
		}
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return invalid(promotion.ReasonCodeNotFound), nil
	}

	o, err := s.repo.FindByCode(ctx, normalized)
	if errors.Is(err, xerrors.ErrNotFound) {
		return invalid(promotion.ReasonCodeNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up offer: %w", err)
	}

	now := s.now()
	if reason := o.InvalidReason(now); reason != "" {
		return invalid(reason), nil
	}
	if !o.CanBeUsedBy(userID, now) {
		return invalid(promotion.ReasonPerUserLimit), nil
	}
	if !o.AppliesTo(service) {
		return invalid(promotion.ReasonNotApplicable), nil
	}
	if price < o.MinimumPurchase {
		return invalid(promotion.ReasonMinimumPurchase), nil
	}

	final, discount := promotion.Breakdown(o, price)
	return &promotion.ValidationResult{
		Valid:           true,
		Reason:          promotion.ReasonValidationSuccess,
		Offer:           publicView(o),
		OriginalPrice:   price,
		DiscountedPrice: final,
		Discount:        discount,
	}, nil
}

// UseCode validates the code and, if it passes, records one redemption for
// userID. A redemption that loses a race for the last slot is reported as an
// invalid result, never as an overshoot of the cap.
func (s *OfferService) UseCode(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error) {
	res, err := s.ValidateCode(ctx, code, userID, service, price)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		s.metrics.CodeRedeemed("rejected")
		return res, nil
	}

	now := s.now()
	updated, err := s.repo.RecordUsage(ctx, res.Offer.ID, userID, now)
	switch {
	case errors.Is(err, xerrors.ErrUsageLimitReached):
		s.metrics.CodeRedeemed("lost_race")
		return lostRace(res, promotion.ReasonUsageExhausted), nil
	case errors.Is(err, xerrors.ErrPerUserLimitReached):
		s.metrics.CodeRedeemed("lost_race")
		return lostRace(res, promotion.ReasonPerUserLimit), nil
	case errors.Is(err, xerrors.ErrOfferUnavailable):
		s.metrics.CodeRedeemed("lost_race")
		return lostRace(res, s.unavailableReason(ctx, res.Offer.ID, now)), nil
	case errors.Is(err, xerrors.ErrNotFound):
		s.metrics.CodeRedeemed("lost_race")
		return lostRace(res, promotion.ReasonCodeNotFound), nil
	case err != nil:
		s.logger.Error("failed to record offer usage",
			zap.Int64("offer_id", res.Offer.ID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	s.metrics.CodeRedeemed("redeemed")
	s.logger.Info("offer redeemed",
		zap.Int64("offer_id", updated.ID),
		zap.String("code", updated.Code),
		zap.Int64("user_id", userID),
		zap.Int("total_uses", updated.CurrentUsage.Total),
	)
	if updated.Status == promotion.OfferStatusExpired {
		s.logger.Info("offer usage limit reached, offer expired",
			zap.Int64("offer_id", updated.ID),
			zap.String("code", updated.Code),
		)
	}

	res.Offer = publicView(updated)
	return res, nil
}

func lostRace(res *promotion.ValidationResult, reason string) *promotion.ValidationResult {
	return &promotion.ValidationResult{
		Valid:           false,
		Reason:          reason,
		OriginalPrice:   res.OriginalPrice,
		DiscountedPrice: res.OriginalPrice,
	}
}

// unavailableReason re-reads an offer that changed between validation and
// redemption and explains why it can no longer be used at now.
func (s *OfferService) unavailableReason(ctx context.Context, id int64, now time.Time) string {
	o, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, xerrors.ErrNotFound) {
		return promotion.ReasonCodeNotFound
	}
	if err != nil {
		s.logger.Warn("failed to reload offer after refused redemption", zap.Int64("offer_id", id), zap.Error(err))
		return promotion.ReasonNotActive
	}
	if reason := o.InvalidReason(now); reason != "" {
		return reason
	}
	return promotion.ReasonNotActive
}

// publicView drops other users' ledger entries before an offer leaves the service.
func publicView(o *promotion.PromotionalOffer) *promotion.PromotionalOffer {
	cp := *o
	cp.CurrentUsage.ByUsers = nil
	return &cp
}

func resultLabel(res *promotion.ValidationResult) string {
	if res.Valid {
		return "valid"
	}
	switch res.Reason {
	case promotion.ReasonCodeNotFound:
		return "not_found"
	case promotion.ReasonUsageExhausted:
		return "exhausted"
	case promotion.ReasonPerUserLimit:
		return "per_user_limit"
	case promotion.ReasonNotApplicable:
		return "not_applicable"
	case promotion.ReasonMinimumPurchase:
		return "minimum_purchase"
	}
	return "not_current"
}

// ========== Admin Operations ==========

// CreateOffer creates a new promotional offer (admin only)
func (s *OfferService) CreateOffer(ctx context.Context, req *promotion.CreateOfferRequest) (*promotion.PromotionalOffer, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validateCodeFormat(code); err != nil {
		return nil, err
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", xerrors.ErrInvalidInput)
	}
	if err := validateDiscount(req.Type, req.Value); err != nil {
		return nil, err
	}
	if err := validateServiceTypes(req.ApplicableTo); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check offer code: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: offer code %s", xerrors.ErrConflict, code)
	}

	perUser := req.PerUserLimit
	if perUser < 1 {
		perUser = 1
	}

	o := &promotion.PromotionalOffer{
		Code:            code,
		Name:            req.Name,
		Description:     req.Description,
		Type:            req.Type,
		Value:           req.Value,
		MaxDiscount:     req.MaxDiscount,
		MinimumPurchase: req.MinimumPurchase,
		ApplicableTo:    req.ApplicableTo,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		UsageLimit: promotion.UsageLimit{
			PerUser: perUser,
			Total:   req.TotalLimit,
		},
		IsActive: !req.Pending,
		Status:   promotion.OfferStatusActive,
	}
	if req.Type == promotion.DiscountTypeFree {
		o.Value = 0
		o.MaxDiscount = nil
	}
	if req.Pending {
		o.Status = promotion.OfferStatusPending
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: offer code %s", xerrors.ErrConflict, code)
		}
		s.logger.Error("failed to create offer", zap.Error(err))
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	s.logger.Info("offer created",
		zap.Int64("offer_id", o.ID),
		zap.String("code", o.Code),
		zap.String("type", string(o.Type)),
	)

	return o, nil
}

// UpdateOffer updates the editable fields of an offer (admin only)
func (s *OfferService) UpdateOffer(ctx context.Context, id int64, req *promotion.UpdateOfferRequest) (*promotion.PromotionalOffer, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.Description != nil {
		o.Description = *req.Description
	}
	if req.Value != nil {
		if err := validateDiscount(o.Type, *req.Value); err != nil {
			return nil, err
		}
		o.Value = *req.Value
	}
	if req.MaxDiscount != nil {
		o.MaxDiscount = req.MaxDiscount
	}
	if req.MinimumPurchase != nil {
		o.MinimumPurchase = *req.MinimumPurchase
	}
	if req.ApplicableTo != nil {
		if err := validateServiceTypes(req.ApplicableTo); err != nil {
			return nil, err
		}
		o.ApplicableTo = req.ApplicableTo
	}
	if req.StartDate != nil {
		o.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		o.EndDate = *req.EndDate
	}
	if req.PerUserLimit != nil {
		o.UsageLimit.PerUser = *req.PerUserLimit
	}
	if req.TotalLimit != nil {
		o.UsageLimit.Total = req.TotalLimit
	}

	if !o.EndDate.After(o.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", xerrors.ErrInvalidInput)
	}

	o.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, o); err != nil {
		s.logger.Error("failed to update offer", zap.Int64("offer_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}

	s.logger.Info("offer updated", zap.Int64("offer_id", id))

	return s.repo.FindByID(ctx, id)
}

// ActivateOffer activates an offer (admin only). An offer that expired by
// exhausting its usage limit stays expired.
func (s *OfferService) ActivateOffer(ctx context.Context, id int64) error {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if o.IsExhausted() {
		return fmt.Errorf("%w: offer usage limit is exhausted", xerrors.ErrInvalidInput)
	}

	if err := s.repo.UpdateStatus(ctx, id, promotion.OfferStatusActive, true, s.now()); err != nil {
		return fmt.Errorf("failed to activate offer: %w", err)
	}

	s.logger.Info("offer activated", zap.Int64("offer_id", id))
	return nil
}

// DeactivateOffer deactivates an offer (admin only)
func (s *OfferService) DeactivateOffer(ctx context.Context, id int64) error {
	if err := s.repo.UpdateStatus(ctx, id, promotion.OfferStatusInactive, false, s.now()); err != nil {
		return fmt.Errorf("failed to deactivate offer: %w", err)
	}

	s.logger.Info("offer deactivated", zap.Int64("offer_id", id))
	return nil
}

// DeleteOffer deletes an offer that was never redeemed (admin only)
func (s *OfferService) DeleteOffer(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, xerrors.ErrNotFound) && !errors.Is(err, xerrors.ErrOfferInUse) {
			s.logger.Error("failed to delete offer", zap.Int64("offer_id", id), zap.Error(err))
		}
		return fmt.Errorf("failed to delete offer: %w", err)
	}

	s.logger.Info("offer deleted", zap.Int64("offer_id", id))
	return nil
}

func (s *OfferService) GetOffer(ctx context.Context, id int64) (*promotion.PromotionalOffer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *OfferService) GetOfferByCode(ctx context.Context, code string) (*promotion.PromotionalOffer, error) {
	return s.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// GetOfferUsage returns the redemption ledger of an offer (admin only)
func (s *OfferService) GetOfferUsage(ctx context.Context, id int64) (*promotion.CurrentUsage, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &o.CurrentUsage, nil
}

// ListOffers retrieves offers with filters
func (s *OfferService) ListOffers(ctx context.Context, filters *promotion.OfferListFilters) (*promotion.OfferListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	offers, total, err := s.repo.List(ctx, filters, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &promotion.OfferListResponse{
		Offers:     offers,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ListActiveOffers returns the offers a customer could redeem right now.
func (s *OfferService) ListActiveOffers(ctx context.Context) ([]promotion.PromotionalOffer, error) {
	offers, err := s.repo.GetActive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get active offers: %w", err)
	}

	for i := range offers {
		offers[i].CurrentUsage.ByUsers = nil
	}
	return offers, nil
}

func (s *OfferService) GetOfferStats(ctx context.Context) (*promotion.OfferStats, error) {
	stats, err := s.repo.GetStats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get offer stats: %w", err)
	}
	return stats, nil
}

// ========== Helper Methods ==========

func validateDiscount(t promotion.DiscountType, value float64) error {
	switch t {
	case promotion.DiscountTypePercentage:
		if value <= 0 || value > 100 {
			return fmt.Errorf("%w: percentage discount must be between 0 and 100", xerrors.ErrInvalidInput)
		}
	case promotion.DiscountTypeFixedAmount:
		if value <= 0 {
			return fmt.Errorf("%w: fixed amount discount must be positive", xerrors.ErrInvalidInput)
		}
	case promotion.DiscountTypeFree:
		// value is ignored
	default:
		return fmt.Errorf("%w: unknown discount type %q", xerrors.ErrInvalidInput, t)
	}
	return nil
}

func validateServiceTypes(types []promotion.ServiceType) error {
	if len(types) == 0 {
		return fmt.Errorf("%w: at least one applicable service type is required", xerrors.ErrInvalidInput)
	}
	for _, t := range types {
		if !t.IsKnown() {
			return fmt.Errorf("%w: unknown service type %q", xerrors.ErrInvalidInput, t)
		}
	}
	return nil
}

// validateCodeFormat expects an already upper-cased code.
func validateCodeFormat(code string) error {
	if len(code) < 3 || len(code) > 50 {
		return fmt.Errorf("%w: offer code must be between 3 and 50 characters", xerrors.ErrInvalidInput)
	}

	for _, ch := range code {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_') {
			return fmt.Errorf("%w: offer code can only contain letters, numbers, hyphens, and underscores", xerrors.ErrInvalidInput)
		}
	}

	return nil
}
