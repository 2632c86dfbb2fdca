// Package numerator provides document auto-numbering with collision retry.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/numerator"
	"tradecore/pkg/logger"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service generates document numbers from a DB-backed counter and
// verifies every candidate against the registry of issued numbers.
//
// The counter alone is not sufficient: numbers can be imported, amended
// documents renumbered, or two derivation calls may race on a fresh
// counter row. Each candidate is therefore checked for existing use and
// regenerated on collision, up to cfg.MaxAttempts times.
type Service struct {
	querier  Querier
	registry numerator.Registry
}

// New creates a new numerator service.
func New(querier Querier, registry numerator.Registry) *Service {
	return &Service{
		querier:  querier,
		registry: registry,
	}
}

var _ numerator.Generator = (*Service)(nil)

// GetNextNumber generates the next unused document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., INV-2026-00001)
func (s *Service) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	key := s.buildKey(cfg, period)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		num, err := s.nextCounter(ctx, key)
		if err != nil {
			return "", err
		}

		candidate := s.formatNumber(cfg, period, num)

		taken, err := s.registry.Exists(ctx, cfg.Prefix, candidate)
		if err != nil {
			return "", fmt.Errorf("check number %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}

		logger.Warn(ctx, "document number collision, retrying",
			"candidate", candidate, "attempt", attempt)
	}

	return "", apperror.NewNumberExhausted(cfg.Prefix, maxAttempts)
}

// nextCounter bumps the sequence row and returns the new value.
// UPSERT + RETURNING keeps the increment atomic across concurrent callers.
func (s *Service) nextCounter(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, 1)
        ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next counter: %w", err)
	}
	return num, nil
}

// buildKey creates the sequence key based on config and period.
func (s *Service) buildKey(cfg numerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// formatNumber creates the final number string.
func (s *Service) formatNumber(cfg numerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric part from a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	var num int64
	patterns := []string{
		"%*[^-]-%*d-%d",
		"%*[^-]-%d",
	}

	for _, pattern := range patterns {
		if _, err := fmt.Sscanf(formatted, pattern, &num); err == nil {
			return num
		}
	}

	return -1
}
