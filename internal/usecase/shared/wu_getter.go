package shared

import (
	"fmt"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// GetWU normalizes id and retrieves the WU document.
// This centralizes the common pattern of:
//
//	id := domain.NormalizeWUID(raw)
//	wu, err := repo.Get(id)
//	if err != nil { return nil, fmt.Errorf("get %s: %w", id, err) }
func GetWU(repo domain.WURepository, rawID string) (*domain.WU, error) {
	id := domain.NormalizeWUID(rawID)
	if _, err := domain.ParseWUNumber(id); err != nil {
		return nil, err
	}
	wu, err := repo.Get(id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if wu == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrWUNotFound, id)
	}
	return wu, nil
}
