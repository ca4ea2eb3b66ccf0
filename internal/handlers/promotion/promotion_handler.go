// internal/handlers/promotion/promotion_handler.go
package promotion

import (
	"context"
	"net/http"
	"strconv"

	"talentmarket-service/internal/domain/promotion"
	"talentmarket-service/internal/middleware"
	"talentmarket-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// OfferService is implemented by *service/promotion.OfferService.
type OfferService interface {
	ValidateCode(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error)
	UseCode(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error)
	CreateOffer(ctx context.Context, req *promotion.CreateOfferRequest) (*promotion.PromotionalOffer, error)
	UpdateOffer(ctx context.Context, id int64, req *promotion.UpdateOfferRequest) (*promotion.PromotionalOffer, error)
	ActivateOffer(ctx context.Context, id int64) error
	DeactivateOffer(ctx context.Context, id int64) error
	DeleteOffer(ctx context.Context, id int64) error
	GetOffer(ctx context.Context, id int64) (*promotion.PromotionalOffer, error)
	GetOfferByCode(ctx context.Context, code string) (*promotion.PromotionalOffer, error)
	GetOfferUsage(ctx context.Context, id int64) (*promotion.CurrentUsage, error)
	ListOffers(ctx context.Context, filters *promotion.OfferListFilters) (*promotion.OfferListResponse, error)
	ListActiveOffers(ctx context.Context) ([]promotion.PromotionalOffer, error)
	GetOfferStats(ctx context.Context) (*promotion.OfferStats, error)
}

type OfferHandler struct {
	offerService OfferService
}

func NewOfferHandler(offerService OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

// ========== User Endpoints ==========

// ValidateCode checks a code against a prospective purchase without redeeming it.
func (h *OfferHandler) ValidateCode(c *gin.Context) {
	h.checkCode(c, h.offerService.ValidateCode, "code validated")
}

// UseCode redeems a code for the authenticated user.
func (h *OfferHandler) UseCode(c *gin.Context) {
	h.checkCode(c, h.offerService.UseCode, "code applied")
}

type codeCheck func(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error)

func (h *OfferHandler) checkCode(c *gin.Context, check codeCheck, okMessage string) {
	userID, ok := middleware.GetIdentityID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req promotion.ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := check(c.Request.Context(), req.Code, userID, req.ServiceType, req.Price)
	if err != nil {
		response.FromError(c, "failed to check code", err)
		return
	}

	// A rejected code is a normal outcome, reported in the body.
	message := okMessage
	if !result.Valid {
		message = result.Reason
	}
	response.Success(c, http.StatusOK, message, result)
}

// ListActiveOffers returns offers that can be redeemed right now.
func (h *OfferHandler) ListActiveOffers(c *gin.Context) {
	offers, err := h.offerService.ListActiveOffers(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to get active offers", err)
		return
	}

	response.Success(c, http.StatusOK, "active offers retrieved", offers)
}

// ========== Admin Only Endpoints ==========

func (h *OfferHandler) CreateOffer(c *gin.Context) {
	var req promotion.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.offerService.CreateOffer(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to create offer", err)
		return
	}

	response.Success(c, http.StatusCreated, "offer created successfully", result)
}

func (h *OfferHandler) UpdateOffer(c *gin.Context) {
	offerID, ok := parseID(c)
	if !ok {
		return
	}

	var req promotion.UpdateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.offerService.UpdateOffer(c.Request.Context(), offerID, &req)
	if err != nil {
		response.FromError(c, "failed to update offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer updated successfully", result)
}

func (h *OfferHandler) ActivateOffer(c *gin.Context) {
	offerID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.offerService.ActivateOffer(c.Request.Context(), offerID); err != nil {
		response.FromError(c, "failed to activate offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer activated successfully", nil)
}

func (h *OfferHandler) DeactivateOffer(c *gin.Context) {
	offerID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.offerService.DeactivateOffer(c.Request.Context(), offerID); err != nil {
		response.FromError(c, "failed to deactivate offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer deactivated successfully", nil)
}

func (h *OfferHandler) DeleteOffer(c *gin.Context) {
	offerID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.offerService.DeleteOffer(c.Request.Context(), offerID); err != nil {
		response.FromError(c, "failed to delete offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer deleted successfully", nil)
}

func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.offerService.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		response.FromError(c, "offer not found", err)
		return
	}

	response.Success(c, http.StatusOK, "offer retrieved", result)
}

func (h *OfferHandler) GetOfferByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.Error(c, http.StatusBadRequest, "offer code is required", nil)
		return
	}

	result, err := h.offerService.GetOfferByCode(c.Request.Context(), code)
	if err != nil {
		response.FromError(c, "offer not found", err)
		return
	}

	response.Success(c, http.StatusOK, "offer retrieved", result)
}

// GetOfferUsage returns the full redemption ledger of an offer.
func (h *OfferHandler) GetOfferUsage(c *gin.Context) {
	offerID, ok := parseID(c)
	if !ok {
		return
	}

	usage, err := h.offerService.GetOfferUsage(c.Request.Context(), offerID)
	if err != nil {
		response.FromError(c, "failed to get offer usage", err)
		return
	}

	response.Success(c, http.StatusOK, "offer usage retrieved", usage)
}

func (h *OfferHandler) ListOffers(c *gin.Context) {
	var filters promotion.OfferListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.offerService.ListOffers(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list offers", err)
		return
	}

	response.Success(c, http.StatusOK, "offers retrieved", result)
}

func (h *OfferHandler) GetOfferStats(c *gin.Context) {
	stats, err := h.offerService.GetOfferStats(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to get offer stats", err)
		return
	}

	response.Success(c, http.StatusOK, "offer stats retrieved", stats)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid offer ID", nil)
		return 0, false
	}
	return id, true
}
