package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service encapsulates API key business logic. The pepper is mixed into every
// hash so a leaked database dump alone is not enough to forge a key.
type Service struct {
	store  *Store
	pepper string
	logger *slog.Logger
}

// NewService creates an API key Service backed by the given global pool.
func NewService(pool *pgxpool.Pool, pepper string, logger *slog.Logger) *Service {
	return &Service{
		store:  NewStore(pool),
		pepper: pepper,
		logger: logger,
	}
}

// List returns all API keys for the given tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Response, error) {
	rows, err := s.store.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Create generates a new API key, stores its hash, and returns the raw key once.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req CreateRequest) (CreateResponse, error) {
	raw, hash, prefix := s.generate()

	row, err := s.store.Create(ctx, CreateParams{
		TenantID:    tenantID,
		UserID:      req.UserID,
		KeyHash:     hash,
		KeyPrefix:   prefix,
		Description: req.Description,
	})
	if err != nil {
		return CreateResponse{}, fmt.Errorf("creating api key: %w", err)
	}

	return CreateResponse{
		Response: row.ToResponse(),
		RawKey:   raw,
	}, nil
}

// Revoke marks an API key revoked.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Revoke(ctx, id); err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	return nil
}

// Authenticate hashes rawKey with the configured pepper and looks up a
// matching, non-revoked API key.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (Row, error) {
	hash := s.hash(rawKey)
	return s.store.FindByHash(ctx, hash)
}

func (s *Service) hash(rawKey string) string {
	h := sha256.Sum256([]byte(s.pepper + rawKey))
	return hex.EncodeToString(h[:])
}

// generate creates a random API key with prefix "vs_", its pepper-prefixed
// SHA-256 hash, and a short prefix for display.
func (s *Service) generate() (raw, hash, prefix string) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	raw = fmt.Sprintf("vs_%x", b)
	hash = s.hash(raw)
	prefix = raw[:10]
	return
}
