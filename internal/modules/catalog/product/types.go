package product

import "time"

// SyncItemDTO is one product row pushed by an external storefront sync.
type SyncItemDTO struct {
	ExternalID  string   `json:"external_id" binding:"required"`
	Title       string   `json:"title"       binding:"required"`
	Description string   `json:"description"`
	ProductType string   `json:"product_type"`
	Vendor      string   `json:"vendor"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Tags        []string `json:"tags"`
	SourceURL   string   `json:"source_url"`
}

type SyncDTO struct {
	Products []SyncItemDTO `json:"products" binding:"required,min=1,dive"`
}

// AnalyzeDTO selects products for analysis, either by stored ids or inline facts.
type AnalyzeDTO struct {
	ProductIDs []string      `json:"product_ids"`
	Products   []SyncItemDTO `json:"products"`
}

type syncResponse struct {
	Synced   int       `json:"synced"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	SyncedAt time.Time `json:"synced_at"`
}

// Facts is the cleaned, request-scoped view of one product.
type Facts struct {
	Title              string   `json:"title"`
	RawDescription     string   `json:"raw_description"`
	CleanedDescription string   `json:"cleaned_description"`
	Price              float64  `json:"price"`
	Tags               []string `json:"tags"`
	ProductType        string   `json:"product_type"`
	Vendor             string   `json:"vendor"`
}

// Analysis is the structured batch analysis consumed by keyword discovery and
// the heuristic generation fallback. Immutable once built.
type Analysis struct {
	Categories     []string `json:"categories"`
	PriceTier      string   `json:"price_tier"` // budget | mid-range | premium | mixed
	UseCases       []string `json:"use_cases"`
	ProblemsSolved []string `json:"problems_solved"`
	Benefits       []string `json:"benefits"`
}
