package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowtix/billing-service/internal/middleware"
	"github.com/knowtix/billing-service/internal/service"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/knowtix/billing-service/pkg/req"
)

// SubscriptionHandler starts checkouts and manages the caller's subscription.
type SubscriptionHandler struct {
	svc service.SubscriptionService
	log *logger.Logger
}

func NewSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, log: log}
}

// CreateRazorpay serves POST /api/subscriptions.
func (h *SubscriptionHandler) CreateRazorpay(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	body, err := req.HandleBody[service.RazorpayCheckoutRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	sub, err := h.svc.CreateRazorpaySubscription(c.Request.Context(), id, *body)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
}

// CreateStripeCheckout serves POST /api/stripe/checkout.
func (h *SubscriptionHandler) CreateStripeCheckout(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	body, err := req.HandleBody[service.StripeCheckoutRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	sess, err := h.svc.CreateStripeCheckout(c.Request.Context(), id, *body)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetMine serves GET /api/subscriptions/me.
func (h *SubscriptionHandler) GetMine(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	view, err := h.svc.GetMine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CancelMine serves POST /api/subscriptions/cancel.
func (h *SubscriptionHandler) CancelMine(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	sub, err := h.svc.CancelMine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
}
