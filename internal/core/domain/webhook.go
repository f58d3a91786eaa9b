package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookStatus represents the delivery state of a webhook.
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "PENDING"
	WebhookStatusDelivered WebhookStatus = "DELIVERED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

// WebhookDelivery tracks one event batch pushed to the webhook subscriber.
// FirstSequence and LastSequence bound the journaled events it carries.
type WebhookDelivery struct {
	ID            uuid.UUID     `json:"id"`
	WebhookURL    string        `json:"webhook_url"`
	FirstSequence uint64        `json:"first_sequence"`
	LastSequence  uint64        `json:"last_sequence"`
	Payload       []byte        `json:"payload"`
	HTTPStatus    *int          `json:"http_status"`
	Attempt       int           `json:"attempt"`
	Status        WebhookStatus `json:"status"`
	NextRetryAt   *time.Time    `json:"next_retry_at"`
	LastError     *string       `json:"last_error"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
