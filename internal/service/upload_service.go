package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/internal/metrics"
	"github.com/knowtix/billing-service/internal/repository"
	"github.com/knowtix/billing-service/pkg/logger"
)

// maxUpstreamBody caps the document service response relayed to the caller.
const maxUpstreamBody = 10 << 20

const providerDocuments domain.Provider = "documents"

// ForwardResult is the document service response relayed to the caller.
type ForwardResult struct {
	Status      int
	ContentType string
	Body        []byte
}

// UploadService gates uploads on an active subscription and forwards them
// to the document-processing service.
type UploadService interface {
	Authorize(ctx context.Context, id domain.Identity) error
	Forward(ctx context.Context, body []byte, contentType string) (*ForwardResult, error)
}

type uploadService struct {
	subs    repository.SubscriptionRepository
	client  *http.Client
	url     string
	metrics metrics.BillingMetrics
	log     *logger.Logger
}

// NewUploadService forwards to url with the given client timeout. The
// subscription check bypasses any cache in front of subs.
func NewUploadService(subs repository.SubscriptionRepository, url string, timeout time.Duration, m metrics.BillingMetrics, log *logger.Logger) UploadService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &uploadService{
		subs:    repository.Uncached(subs),
		client:  &http.Client{Timeout: timeout},
		url:     url,
		metrics: m,
		log:     log,
	}
}

// Authorize returns domain.ErrPaymentRequired unless the caller's subscription
// status is exactly "active".
func (s *uploadService) Authorize(ctx context.Context, id domain.Identity) error {
	sub, err := s.subs.GetByUserID(ctx, id.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.IncUpload("payment_required")
		return fmt.Errorf("%w: no subscription", domain.ErrPaymentRequired)
	case err != nil:
		s.metrics.IncUpload("error")
		return err
	case !domain.Entitled(sub.Status):
		s.metrics.IncUpload("payment_required")
		return fmt.Errorf("%w: status %q", domain.ErrPaymentRequired, sub.Status)
	}
	return nil
}

// Forward posts the untouched multipart body and relays the response.
func (s *uploadService) Forward(ctx context.Context, body []byte, contentType string) (*ForwardResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.metrics.IncUpload("error")
		return nil, domain.NewProviderError(providerDocuments, "build request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.IncUpload("error")
		s.log.Errorw("Document service request failed", "url", s.url, "error", err)
		return nil, domain.NewProviderError(providerDocuments, "upload", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		s.metrics.IncUpload("error")
		return nil, domain.NewProviderError(providerDocuments, "read response", err)
	}

	s.metrics.IncUpload("forwarded")
	s.log.Infow("Document forwarded", "status", resp.StatusCode, "bytes", len(body))
	return &ForwardResult{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: out}, nil
}
