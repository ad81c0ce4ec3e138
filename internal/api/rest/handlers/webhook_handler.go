package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/integration/razorpay"
	"github.com/knowtix/billing-service/internal/integration/stripe"
	"github.com/knowtix/billing-service/internal/service"
	"github.com/knowtix/billing-service/pkg/logger"
)

// maxWebhookBody is the largest payload accepted from a provider.
const maxWebhookBody = 64 << 10

// WebhookHandler receives provider callbacks, authenticates them and hands
// the decoded event to the reconciler.
type WebhookHandler struct {
	stripe     *stripe.WebhookVerifier
	razorpay   *razorpay.Verifier
	reconciler service.Reconciler
	log        *logger.Logger
}

func NewWebhookHandler(stripeVerifier *stripe.WebhookVerifier, razorpayVerifier *razorpay.Verifier, reconciler service.Reconciler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		stripe:     stripeVerifier,
		razorpay:   razorpayVerifier,
		reconciler: reconciler,
		log:        log,
	}
}

// HandleStripe serves POST /api/stripe/webhook.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Webhook Error: "+err.Error(), err, h.log)
		return
	}

	event, err := h.stripe.Verify(body, c.GetHeader(stripe.SignatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			respondError(c, err, h.log)
			return
		}
		respondMessage(c, http.StatusBadRequest, "Webhook Error: "+err.Error(), err, h.log)
		return
	}

	ev, err := stripe.DecodeEvent(event)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Webhook Error: "+err.Error(), err, h.log)
		return
	}
	h.apply(c, ev)
}

// HandleRazorpay serves POST /api/webhooks/razorpay.
func (h *WebhookHandler) HandleRazorpay(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid payload", err, h.log)
		return
	}

	signature := c.GetHeader(razorpay.SignatureHeader)
	if signature == "" {
		respondMessage(c, http.StatusBadRequest, "No signature found", domain.ErrInvalidSignature, h.log)
		return
	}
	if err := h.razorpay.Verify(body, signature); err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			respondError(c, err, h.log)
			return
		}
		respondMessage(c, http.StatusBadRequest, "Invalid signature", err, h.log)
		return
	}

	ev, err := razorpay.DecodeEvent(body, c.GetHeader(razorpay.EventIDHeader))
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	h.apply(c, ev)
}

func (h *WebhookHandler) apply(c *gin.Context, ev domain.ProviderEvent) {
	if _, err := h.reconciler.Apply(c.Request.Context(), ev); err != nil {
		respondMessage(c, http.StatusInternalServerError, "Webhook handler failed", err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// readBody returns the exact raw bytes; signatures are computed over them.
func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	return io.ReadAll(c.Request.Body)
}
