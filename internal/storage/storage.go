package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

var (
	// ErrInvalidCatalog indicates the provided box catalog violates validation rules.
	ErrInvalidCatalog = fmt.Errorf("catalog must contain between 1 and %d boxes with positive dimensions", packing.MaxCatalogSize)
)

// Storage provides access to the box catalog used for recommendations.
type Storage interface {
	GetCatalog() (*packing.Catalog, error)
	SetCatalog(boxes []packing.CatalogBox) error
}

// MemoryStorage keeps the catalog in-memory and guards access with a RWMutex.
// Readers receive an immutable snapshot, so a replacement never affects a
// request that is already running.
type MemoryStorage struct {
	mu      sync.RWMutex
	margin  float64
	catalog *packing.Catalog
}

// NewMemoryStorage initialises storage with the given boxes, or the default
// catalog when boxes is empty.
func NewMemoryStorage(boxes []packing.CatalogBox, customMargin float64) (*MemoryStorage, error) {
	if len(boxes) == 0 {
		boxes = packing.DefaultCatalogBoxes()
	}

	s := &MemoryStorage{margin: customMargin}
	if err := s.SetCatalog(boxes); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultCatalogBoxes returns a copy of the built-in box list.
func DefaultCatalogBoxes() []packing.CatalogBox {
	return packing.DefaultCatalogBoxes()
}

// GetCatalog returns the current catalog snapshot.
func (s *MemoryStorage) GetCatalog() (*packing.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.catalog, nil
}

// SetCatalog validates, normalises, and stores the provided boxes.
func (s *MemoryStorage) SetCatalog(boxes []packing.CatalogBox) error {
	normalized, err := normalizeBoxes(boxes)
	if err != nil {
		return err
	}

	catalog, err := packing.NewCatalog(normalized, s.margin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()

	return nil
}

// normalizeBoxes drops repeated dimension triples, keeping the first
// occurrence, and names unnamed boxes after their dimensions.
func normalizeBoxes(boxes []packing.CatalogBox) ([]packing.CatalogBox, error) {
	if len(boxes) == 0 {
		return nil, ErrInvalidCatalog
	}

	seen := make(map[packing.Dimensions]struct{}, len(boxes))
	out := make([]packing.CatalogBox, 0, len(boxes))
	for _, b := range boxes {
		if _, dup := seen[b.Dimensions]; dup {
			continue
		}
		seen[b.Dimensions] = struct{}{}
		if b.Name == "" {
			b.Name = b.Dimensions.String()
		}
		out = append(out, b)
	}
	if len(out) > packing.MaxCatalogSize {
		return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("got %d distinct boxes", len(out)))
	}
	return out, nil
}
