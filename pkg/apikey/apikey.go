package apikey

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CreateRequest is the JSON body for POST /api/v1/apikeys.
type CreateRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Description string    `json:"description" validate:"required"`
}

// Response is the JSON response for a single API key (without the raw key).
type Response struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	UserID      uuid.UUID  `json:"user_id"`
	KeyPrefix   string     `json:"key_prefix"`
	Description string     `json:"description"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateResponse includes the raw key (only shown once at creation).
type CreateResponse struct {
	Response
	RawKey string `json:"raw_key"`
}

// Row represents a row from the api_keys table.
type Row struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	UserID      uuid.UUID
	KeyHash     string
	KeyPrefix   string
	Description string
	RevokedAt   pgtype.Timestamptz
	CreatedAt   time.Time
}

// ToResponse converts a Row to a Response DTO.
func (r *Row) ToResponse() Response {
	resp := Response{
		ID:          r.ID,
		TenantID:    r.TenantID,
		UserID:      r.UserID,
		KeyPrefix:   r.KeyPrefix,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
	if r.RevokedAt.Valid {
		t := r.RevokedAt.Time
		resp.RevokedAt = &t
	}
	return resp
}

// Revoked reports whether the key has been revoked.
func (r *Row) Revoked() bool {
	return r.RevokedAt.Valid
}
