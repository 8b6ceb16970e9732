package product

import (
	"errors"
	"time"

	"github.com/rankforge/core/internal/models"
	"github.com/rankforge/core/internal/pkg/pagination"
	"github.com/rankforge/core/internal/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errProductNotFound  = errors.New("product not found")
	errNothingToAnalyze = errors.New("nothing to analyze")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Sync upserts catalog rows keyed by external ID. Re-syncing the same payload
// is idempotent apart from the refreshed synced_at timestamp.
func (s *Service) Sync(items []SyncItemDTO) (*syncResponse, error) {
	deduped := dedupeByExternalID(items)

	externalIDs := make([]string, 0, len(deduped))
	for _, item := range deduped {
		externalIDs = append(externalIDs, item.ExternalID)
	}

	var existing []string
	if err := s.db.Model(&models.ProductModel{}).
		Where("external_id IN ?", externalIDs).
		Pluck("external_id", &existing).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	rows := make([]models.ProductModel, 0, len(deduped))
	for _, item := range deduped {
		currency := item.Currency
		if currency == "" {
			currency = "USD"
		}
		rows = append(rows, models.ProductModel{
			ExternalID:  item.ExternalID,
			Title:       item.Title,
			Description: item.Description,
			ProductType: item.ProductType,
			Vendor:      item.Vendor,
			Price:       item.Price,
			Currency:    currency,
			Tags:        models.StringArray(normalizeTags(item.Tags)),
			SourceURL:   item.SourceURL,
			SyncedAt:    &now,
		})
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "product_type", "vendor",
			"price", "currency", "tags", "source_url", "synced_at", "updated_at",
		}),
	}).Create(&rows).Error; err != nil {
		return nil, err
	}

	updated := len(existing)
	return &syncResponse{
		Synced:   len(deduped),
		Created:  len(deduped) - updated,
		Updated:  updated,
		SyncedAt: now,
	}, nil
}

func (s *Service) List(q pagination.Query, productType, vendor string) ([]models.ProductModel, response.Pagination, error) {
	query := s.db.Model(&models.ProductModel{})
	if productType != "" {
		query = query.Where("product_type = ?", productType)
	}
	if vendor != "" {
		query = query.Where("vendor = ?", vendor)
	}
	query = query.Order("synced_at DESC")

	var rows []models.ProductModel
	p, err := pagination.Paginate(query, q, &rows)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return rows, p, nil
}

func (s *Service) Get(id string) (*models.ProductModel, error) {
	var row models.ProductModel
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProductNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.ProductModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errProductNotFound
	}
	return nil
}

// Analyze builds facts from stored rows, inline payload rows, or both, then
// runs the batch analysis over them.
func (s *Service) Analyze(dto AnalyzeDTO) (*Analysis, error) {
	if len(dto.ProductIDs) == 0 && len(dto.Products) == 0 {
		return nil, errNothingToAnalyze
	}

	var batch []Facts
	if len(dto.ProductIDs) > 0 {
		var rows []models.ProductModel
		if err := s.db.Where("id IN ?", dto.ProductIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		if len(rows) != len(uniqueStrings(dto.ProductIDs)) {
			return nil, errProductNotFound
		}
		for i := range rows {
			batch = append(batch, FactsFromModel(&rows[i]))
		}
	}
	for _, item := range dto.Products {
		batch = append(batch, BuildFacts(item))
	}

	analysis := Analyze(batch)
	return &analysis, nil
}

func dedupeByExternalID(items []SyncItemDTO) []SyncItemDTO {
	index := map[string]int{}
	out := make([]SyncItemDTO, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ExternalID]; ok {
			out[pos] = item
			continue
		}
		index[item.ExternalID] = len(out)
		out = append(out, item)
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
