package keyword

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rankforge/core/internal/models"
	appconfigs "github.com/rankforge/core/internal/modules/system/configs"
	"github.com/rankforge/core/internal/pkg/pagination"
	"github.com/rankforge/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	cfgSvc *appconfigs.Service
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfgSvc *appconfigs.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cfgSvc: cfgSvc, logger: logger.Named("KeywordService")}
}

// Discover resolves the seed, runs the engine with the current runtime
// config, and persists the finished set. The client and engine are rebuilt
// per run so config patches apply without a restart.
func (s *Service) Discover(ctx context.Context, dto DiscoverDTO) (*models.KeywordSetModel, error) {
	seed := strings.TrimSpace(dto.Seed)
	if seed == "" && dto.ProductID != nil {
		var product models.ProductModel
		if err := s.db.Where("id = ?", *dto.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %s", errSeedMissing, *dto.ProductID)
			}
			return nil, err
		}
		seed = product.Title
	}
	if seed == "" {
		return nil, errSeedMissing
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return nil, err
	}
	opts := cfg.Discovery
	if dto.LanguageCode != "" {
		opts.LanguageCode = dto.LanguageCode
	}
	if dto.LocationCode != 0 {
		opts.LocationCode = dto.LocationCode
	}

	client, err := NewVolumeClient(opts, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotConfigured, err)
	}
	scorer, err := NewScorer(opts.MaxKeywordLength, opts.DifficultyScript)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotConfigured, err)
	}
	engine := NewEngine(client, scorer, EngineOptions{
		MinSearchVolume:       opts.MinSearchVolume,
		ExpansionTriggerCount: opts.ExpansionTriggerCount,
		MaxKeywordsPerRequest: opts.MaxKeywordsPerRequest,
		SuggestionLimit:       opts.SuggestionLimit,
	}, s.logger)

	started := time.Now()
	result, err := engine.Discover(ctx, seed)
	if err != nil {
		return nil, err
	}

	set := &models.KeywordSetModel{
		ProductID:      dto.ProductID,
		SeedSource:     seed,
		LanguageCode:   opts.LanguageCode,
		LocationCode:   opts.LocationCode,
		Phases:         models.StringArray(result.Phases),
		Keywords:       result.Candidates,
		CandidateCount: result.CandidateCount,
		ResultCount:    len(result.Candidates),
	}
	if err := s.db.Create(set).Error; err != nil {
		return nil, err
	}

	s.logger.Info("keyword set persisted",
		zap.String("id", set.ID),
		zap.Int("results", set.ResultCount),
		zap.Duration("took", time.Since(started)))
	return set, nil
}

func (s *Service) List(q pagination.Query, productID string) ([]models.KeywordSetModel, response.Pagination, error) {
	query := s.db.Model(&models.KeywordSetModel{})
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	query = query.Order("created_at DESC")

	var rows []models.KeywordSetModel
	p, err := pagination.Paginate(query, q, &rows)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return rows, p, nil
}

func (s *Service) Get(id string) (*models.KeywordSetModel, error) {
	var set models.KeywordSetModel
	if err := s.db.Where("id = ?", id).First(&set).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSetNotFound
		}
		return nil, err
	}
	return &set, nil
}

// PatchSelection replaces the selected flags by candidate text. Texts that do
// not match any candidate are ignored.
func (s *Service) PatchSelection(id string, selected []string) (*models.KeywordSetModel, error) {
	set, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(selected))
	for _, text := range selected {
		want[normalizeText(text)] = struct{}{}
	}
	for i := range set.Keywords {
		_, ok := want[set.Keywords[i].Text]
		set.Keywords[i].Selected = ok
	}

	if err := s.db.Model(set).Update("keywords", set.Keywords).Error; err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.KeywordSetModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errSetNotFound
	}
	return nil
}

// PruneStale deletes sets older than the retention window that have no
// selected candidates. Used by the maintenance cron.
func (s *Service) PruneStale(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var stale []models.KeywordSetModel
	if err := s.db.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}

	pruned := 0
	for i := range stale {
		hasSelection := false
		for _, k := range stale[i].Keywords {
			if k.Selected {
				hasSelection = true
				break
			}
		}
		if hasSelection {
			continue
		}
		if err := s.db.Delete(&stale[i]).Error; err != nil {
			return pruned, err
		}
		pruned++
	}

	if pruned > 0 {
		s.logger.Info("pruned stale keyword sets", zap.Int("count", pruned))
	}
	return pruned, nil
}
