// internal/handlers/sweep/sweep_handler.go
package sweep

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"talentmarket-service/internal/domain/entitlement"
	xerrors "talentmarket-service/internal/pkg/errors"
	"talentmarket-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Sweeper interface {
	Now() time.Time
	Trigger(ctx context.Context, now time.Time) (*entitlement.SweepResult, error)
}

type SweepHandler struct {
	sweeper Sweeper
}

func NewSweepHandler(sweeper Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

type runRequest struct {
	// Now overrides the sweep clock, for backfills. It may not be later than
	// the server clock.
	Now *time.Time `json:"now"`
}

// RunSweep runs the expiry sweep on demand (admin only).
func (h *SweepHandler) RunSweep(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, "invalid request", err)
			return
		}
	}

	now := h.sweeper.Now()
	if req.Now != nil {
		if req.Now.After(now) {
			err := fmt.Errorf("%w: now %s is after the server clock", xerrors.ErrInvalidInput, req.Now.Format(time.RFC3339))
			response.Error(c, http.StatusBadRequest, "now cannot be in the future", err)
			return
		}
		now = *req.Now
	}

	result, err := h.sweeper.Trigger(c.Request.Context(), now)
	if err != nil {
		// partial counts are still useful to the operator
		if result != nil {
			response.Error(c, http.StatusInternalServerError, "expiry sweep failed", err, result)
			return
		}
		response.FromError(c, "expiry sweep failed", err)
		return
	}

	response.Success(c, http.StatusOK, "expiry sweep completed", gin.H{
		"result": result,
		"total":  result.Total(),
	})
}
