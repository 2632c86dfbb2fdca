package item

import (
	"context"
	"fmt"
	"strings"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/id"
	"tradecore/pkg/logger"
)

// Service provides business operations for the item catalog.
type Service struct {
	repo Repository
}

// NewService creates a new item service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves an item.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// Resolve returns the item for a source line. When the reference is
// missing or points at a record that no longer exists, a minimal
// placeholder is synthesized so the line is not silently dropped. The
// second return value reports whether a placeholder was used; callers
// record it as a data-quality event.
func (s *Service) Resolve(ctx context.Context, itemID *id.ID, description string) (*Item, bool, error) {
	if itemID != nil && !id.IsNil(*itemID) {
		found, err := s.repo.GetByID(ctx, *itemID)
		if err == nil {
			return found, false, nil
		}
		if !apperror.IsNotFound(err) {
			return nil, false, err
		}
		logger.Warn(ctx, "item reference unresolvable, synthesizing placeholder",
			"item_id", itemID.String())
	}

	placeholder, err := s.EnsurePlaceholder(ctx, description)
	if err != nil {
		return nil, false, err
	}
	return placeholder, true, nil
}

// EnsurePlaceholder finds or creates a minimal placeholder item for the
// given description. The auto-generated code is stable per call, not per
// description: two lines with the same free text get two records, which
// keeps placeholder curation a pure master-data concern.
func (s *Service) EnsurePlaceholder(ctx context.Context, description string) (*Item, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Unspecified item"
	}

	code := autoCode()
	// Collisions on the 8-char suffix are unlikely but cheap to step over.
	for i := 0; i < 3; i++ {
		exists, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check placeholder code: %w", err)
		}
		if !exists {
			break
		}
		code = autoCode()
	}

	placeholder := New(code, description)
	placeholder.Placeholder = true
	placeholder.SupplierCode = code

	if err := s.repo.Create(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("create placeholder item: %w", err)
	}

	logger.Info(ctx, "placeholder item created",
		"item_id", placeholder.ID, "code", code, "description", description)
	return placeholder, nil
}

func autoCode() string {
	// Tail of a UUIDv7 carries the random bits; the head is timestamp.
	s := id.New().String()
	return "AUTO-" + strings.ToUpper(s[len(s)-8:])
}
