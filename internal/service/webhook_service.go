package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// webhookRetryIntervals are the waits between delivery attempts.
var webhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Webhook headers.
const (
	HeaderWebhookSignature = "X-Ledger-Signature"
	HeaderWebhookTimestamp = "X-Ledger-Timestamp"
	HeaderWebhookDelivery  = "X-Ledger-Delivery"
)

// WebhookPayload is the JSON body POSTed to the subscriber.
type WebhookPayload struct {
	DeliveryID string         `json:"delivery_id"`
	Events     []domain.Event `json:"events"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookNotifier is an EventSink that pushes committed events to a single
// subscriber URL. Delivery is asynchronous and retried. With a delivery log
// attached, every attempt is recorded and unfinished batches can be resumed
// after a restart.
type WebhookNotifier struct {
	url        string
	secret     string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	deliveries ports.WebhookDeliveryRepository
	retries    []time.Duration
	log        zerolog.Logger
}

var _ ports.EventSink = (*WebhookNotifier)(nil)

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithDeliveryLog records each delivery and its attempts in repo.
func WithDeliveryLog(repo ports.WebhookDeliveryRepository) WebhookOption {
	return func(n *WebhookNotifier) { n.deliveries = repo }
}

// NewWebhookNotifier creates a webhook sink.
func NewWebhookNotifier(
	url string,
	secret string,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	log zerolog.Logger,
	opts ...WebhookOption,
) *WebhookNotifier {
	n := &WebhookNotifier{
		url:        url,
		secret:     secret,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		retries:    webhookRetryIntervals,
		log:        log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the sink name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Publish signs the batch and delivers it in the background.
func (n *WebhookNotifier) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	payload := WebhookPayload{
		DeliveryID: uuid.NewString(),
		Events:     events,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	now := time.Now()
	d := &domain.WebhookDelivery{
		ID:            uuid.MustParse(payload.DeliveryID),
		WebhookURL:    n.url,
		FirstSequence: events[0].Sequence,
		LastSequence:  events[len(events)-1].Sequence,
		Payload:       body,
		Status:        domain.WebhookStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if n.deliveries != nil {
		if err := n.deliveries.Create(ctx, d); err != nil {
			n.log.Warn().Err(err).Str("delivery_id", payload.DeliveryID).Msg("webhook: failed to record delivery")
		}
	}

	go n.deliverWithRetries(d)
	return nil
}

// ResumePending restarts delivery of batches left PENDING in the delivery
// log, e.g. by a shutdown mid-retry. It returns the number resumed.
func (n *WebhookNotifier) ResumePending(ctx context.Context, limit int) (int, error) {
	if n.deliveries == nil {
		return 0, nil
	}
	pending, err := n.deliveries.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	for i := range pending {
		d := pending[i]
		go n.deliverWithRetries(&d)
	}
	return len(pending), nil
}

// deliverWithRetries attempts delivery once plus once per retry interval.
// A resumed delivery continues from its recorded attempt count and waits
// for its recorded NextRetryAt.
func (n *WebhookNotifier) deliverWithRetries(d *domain.WebhookDelivery) {
	deliveryID := d.ID.String()
	start := d.Attempt
	if start > len(n.retries) {
		d.Status = domain.WebhookStatusFailed
		d.NextRetryAt = nil
		n.record(d)
		n.log.Error().Str("delivery_id", deliveryID).Int("attempt", d.Attempt).Msg("webhook: all retry attempts exhausted")
		return
	}
	if d.NextRetryAt != nil {
		if wait := time.Until(*d.NextRetryAt); wait > 0 {
			time.Sleep(wait)
		}
	}

	for attempt := start; attempt <= len(n.retries); attempt++ {
		if attempt > start {
			time.Sleep(n.retries[attempt-1])
		}
		d.Attempt++

		status, err := n.deliver(deliveryID, d.Payload)
		if err == nil && status >= 200 && status < 300 {
			n.log.Info().Str("delivery_id", deliveryID).Int("attempt", d.Attempt).Int("status", status).Msg("webhook: delivered successfully")
			d.Status = domain.WebhookStatusDelivered
			d.HTTPStatus = &status
			d.NextRetryAt = nil
			n.record(d)
			return
		}

		var msg string
		if err != nil {
			msg = err.Error()
			n.log.Warn().Err(err).Str("delivery_id", deliveryID).Int("attempt", d.Attempt).Msg("webhook: delivery failed")
		} else {
			msg = "HTTP " + strconv.Itoa(status)
			d.HTTPStatus = &status
			n.log.Warn().Str("delivery_id", deliveryID).Int("attempt", d.Attempt).Int("status", status).Msg("webhook: non-2xx response, retrying")
		}
		d.LastError = &msg
		if attempt < len(n.retries) {
			next := time.Now().Add(n.retries[attempt])
			d.NextRetryAt = &next
		} else {
			d.NextRetryAt = nil
			d.Status = domain.WebhookStatusFailed
		}
		n.record(d)
	}

	n.log.Error().Str("delivery_id", deliveryID).Msg("webhook: all retry attempts exhausted")
}

// deliver makes one signed POST and returns the response status.
func (n *WebhookNotifier) deliver(deliveryID string, body []byte) (int, error) {
	ts := time.Now().Unix()
	signature := n.sigSvc.Sign(n.secret, n.sigSvc.BuildCanonicalString(ts, deliveryID, string(body)))

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookSignature, signature)
	req.Header.Set(HeaderWebhookTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderWebhookDelivery, deliveryID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (n *WebhookNotifier) record(d *domain.WebhookDelivery) {
	if n.deliveries == nil {
		return
	}
	d.UpdatedAt = time.Now()
	if err := n.deliveries.Update(context.Background(), d); err != nil {
		n.log.Warn().Err(err).Str("delivery_id", d.ID.String()).Msg("webhook: failed to record attempt")
	}
}
