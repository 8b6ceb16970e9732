package keyword

import "errors"

// DiscoverDTO starts a discovery run from a raw seed or a synced product.
type DiscoverDTO struct {
	Seed         string  `json:"seed"`
	ProductID    *string `json:"product_id"`
	LanguageCode string  `json:"language_code"`
	LocationCode int     `json:"location_code"`
}

// SelectionDTO replaces the selected flags of a stored set. An empty list
// clears the selection.
type SelectionDTO struct {
	Selected []string `json:"selected"`
}

var (
	errSeedMissing   = errors.New("seed or product_id is required")
	errSetNotFound   = errors.New("keyword set not found")
	errNotConfigured = errors.New("keyword discovery is not configured")
)
