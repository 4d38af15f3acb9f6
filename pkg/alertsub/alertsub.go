// Package alertsub manages alert subscriptions: the per-tenant rules that
// say which signal clusters should be delivered to which channel/endpoint.
package alertsub

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScopeAll    = "all"
	ScopeEntity = "entity"

	ChannelWebhook = "webhook"
	ChannelEmail   = "email"
)

type Subscription struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	UserID           uuid.UUID `json:"user_id"`
	Scope            string    `json:"scope"`
	EntityType       *string   `json:"entity_type,omitempty"`
	EntityID         *uuid.UUID `json:"entity_id,omitempty"`
	SeverityMin      string    `json:"severity_min"`
	ConfidenceMin    *string   `json:"confidence_min,omitempty"`
	Channel          string    `json:"channel"`
	Endpoint         string    `json:"endpoint"`
	Secret           *string   `json:"-"`
	SignatureVersion string    `json:"signature_version"`
	IsEnabled        bool      `json:"is_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Scope         string     `json:"scope" validate:"required,oneof=all entity"`
	EntityType    *string    `json:"entity_type,omitempty"`
	EntityID      *uuid.UUID `json:"entity_id,omitempty"`
	SeverityMin   string     `json:"severity_min" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	ConfidenceMin *string    `json:"confidence_min,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Channel       string     `json:"channel" validate:"required,oneof=webhook email"`
	Endpoint      string     `json:"endpoint" validate:"required"`
	Secret        *string    `json:"secret,omitempty"`
}

type UpdateRequest struct {
	SeverityMin   *string `json:"severity_min,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	ConfidenceMin *string `json:"confidence_min,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Endpoint      *string `json:"endpoint,omitempty"`
	Secret        *string `json:"secret,omitempty"`
	IsEnabled     *bool   `json:"is_enabled,omitempty"`
}
