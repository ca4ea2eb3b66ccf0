package promotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"talentmarket-service/internal/domain/promotion"
	xerrors "talentmarket-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService records the arguments of code checks and returns canned values.
type stubService struct {
	OfferService

	result *promotion.ValidationResult
	err    error

	gotCode    string
	gotUser    int64
	gotService promotion.ServiceType
	gotPrice   float64
	used       bool
}

func (s *stubService) ValidateCode(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error) {
	s.gotCode, s.gotUser, s.gotService, s.gotPrice = code, userID, service, price
	return s.result, s.err
}

func (s *stubService) UseCode(ctx context.Context, code string, userID int64, service promotion.ServiceType, price float64) (*promotion.ValidationResult, error) {
	s.used = true
	return s.ValidateCode(ctx, code, userID, service, price)
}

func (s *stubService) GetOffer(ctx context.Context, id int64) (*promotion.PromotionalOffer, error) {
	if id != 5 {
		return nil, fmt.Errorf("lookup: %w", xerrors.ErrNotFound)
	}
	return &promotion.PromotionalOffer{ID: 5, Code: "KICKOFF20"}, nil
}

func (s *stubService) DeleteOffer(ctx context.Context, id int64) error {
	return fmt.Errorf("failed to delete offer: %w", xerrors.ErrOfferInUse)
}

func (s *stubService) CreateOffer(ctx context.Context, req *promotion.CreateOfferRequest) (*promotion.PromotionalOffer, error) {
	return nil, fmt.Errorf("%w: end date must be after start date", xerrors.ErrInvalidInput)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newRouter(svc OfferService, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewOfferHandler(svc)

	r := gin.New()
	authed := r.Group("", func(c *gin.Context) {
		if userID != 0 {
			c.Set("identity_id", userID)
		}
		c.Next()
	})
	authed.POST("/offers/validate", h.ValidateCode)
	authed.POST("/offers/use", h.UseCode)
	authed.POST("/offers", h.CreateOffer)
	authed.GET("/offers/:id", h.GetOffer)
	authed.DELETE("/offers/:id", h.DeleteOffer)
	return r
}

func send(r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestValidateCode(t *testing.T) {
	svc := &stubService{result: &promotion.ValidationResult{
		Valid:           true,
		Reason:          promotion.ReasonValidationSuccess,
		OriginalPrice:   200,
		DiscountedPrice: 170,
		Discount:        30,
	}}
	r := newRouter(svc, 9)

	w, env := send(r, http.MethodPost, "/offers/validate", gin.H{
		"code": "kickoff20", "service_type": "player_profile", "price": 200,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "kickoff20", svc.gotCode)
	assert.Equal(t, int64(9), svc.gotUser)
	assert.Equal(t, promotion.ServicePlayerProfile, svc.gotService)
	assert.Equal(t, 200.0, svc.gotPrice)
	assert.False(t, svc.used)

	var res promotion.ValidationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 170.0, res.DiscountedPrice)
}

func TestUseCode_RejectedCodeIsNotAnHTTPError(t *testing.T) {
	svc := &stubService{result: &promotion.ValidationResult{
		Valid:           false,
		Reason:          promotion.ReasonPerUserLimit,
		OriginalPrice:   200,
		DiscountedPrice: 200,
	}}
	r := newRouter(svc, 9)

	w, env := send(r, http.MethodPost, "/offers/use", gin.H{
		"code": "KICKOFF20", "service_type": "player_profile", "price": 200,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.used)
	assert.Equal(t, promotion.ReasonPerUserLimit, env.Message)
}

func TestCodeCheck_RequiresIdentity(t *testing.T) {
	r := newRouter(&stubService{}, 0)

	w, _ := send(r, http.MethodPost, "/offers/validate", gin.H{
		"code": "KICKOFF20", "service_type": "player_profile", "price": 200,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCodeCheck_BadBody(t *testing.T) {
	r := newRouter(&stubService{}, 9)

	w, env := send(r, http.MethodPost, "/offers/validate", gin.H{"price": 200})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestCodeCheck_InternalErrorIsNotLeaked(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("failed to look up offer: %w", fmt.Errorf("dial tcp 10.0.0.3:5432: connection refused"))}
	r := newRouter(svc, 9)

	w, env := send(r, http.MethodPost, "/offers/validate", gin.H{
		"code": "KICKOFF20", "service_type": "player_profile", "price": 200,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, xerrors.ErrInternal.Error(), env.Error)
}

func TestErrorMapping(t *testing.T) {
	r := newRouter(&stubService{}, 1)

	w, _ := send(r, http.MethodGet, "/offers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = send(r, http.MethodGet, "/offers/6", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := send(r, http.MethodGet, "/offers/5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "KICKOFF20")

	w, env = send(r, http.MethodDelete, "/offers/5", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, xerrors.ErrOfferInUse.Error(), env.Error)
}

func TestCreateOffer_InvalidInputIsShown(t *testing.T) {
	r := newRouter(&stubService{}, 1)

	w, env := send(r, http.MethodPost, "/offers", gin.H{
		"code":          "SUMMER",
		"name":          "Summer",
		"type":          "fixed_amount",
		"value":         10,
		"applicable_to": []string{"coach_profile"},
		"start_date":    "2026-06-01T00:00:00Z",
		"end_date":      "2026-05-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "end date must be after start date")
}
