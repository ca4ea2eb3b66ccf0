// internal/app/router.go
package app

import (
	"net/http"

	promotionHandler "talentmarket-service/internal/handlers/promotion"
	sweepHandler "talentmarket-service/internal/handlers/sweep"
	"talentmarket-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	OfferHandler   *promotionHandler.OfferHandler
	SweepHandler   *sweepHandler.SweepHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        http.Handler

	// CodeAttemptLimit guards validate and use; optional.
	CodeAttemptLimit gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Promotional Offers ====================
	offers := api.Group("/offers")
	{
		// Public
		offers.GET("/active", h.OfferHandler.ListActiveOffers)

		// Authenticated
		offersAuth := offers.Group("")
		offersAuth.Use(h.AuthMiddleware.Auth())
		if h.CodeAttemptLimit != nil {
			offersAuth.Use(h.CodeAttemptLimit)
		}
		{
			offersAuth.POST("/validate", h.OfferHandler.ValidateCode)
			offersAuth.POST("/use", h.OfferHandler.UseCode)
		}

		// Admin
		offersAdmin := offers.Group("")
		offersAdmin.Use(h.AuthMiddleware.AdminOnly()...)
		{
			offersAdmin.POST("", h.OfferHandler.CreateOffer)
			offersAdmin.GET("", h.OfferHandler.ListOffers)
			offersAdmin.GET("/stats", h.OfferHandler.GetOfferStats)
			offersAdmin.GET("/code/:code", h.OfferHandler.GetOfferByCode)
			offersAdmin.GET("/:id", h.OfferHandler.GetOffer)
			offersAdmin.PUT("/:id", h.OfferHandler.UpdateOffer)
			offersAdmin.DELETE("/:id", h.OfferHandler.DeleteOffer)
			offersAdmin.PUT("/:id/activate", h.OfferHandler.ActivateOffer)
			offersAdmin.PUT("/:id/deactivate", h.OfferHandler.DeactivateOffer)
			offersAdmin.GET("/:id/usage", h.OfferHandler.GetOfferUsage)
		}
	}

	// ==================== Admin Operations ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.POST("/sweeps/run", h.SweepHandler.RunSweep)
	}
}
