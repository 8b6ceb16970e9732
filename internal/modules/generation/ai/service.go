package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appcfg "github.com/rankforge/core/internal/config"
	"github.com/rankforge/core/internal/models"
	"github.com/rankforge/core/internal/modules/catalog/product"
	appconfigs "github.com/rankforge/core/internal/modules/system/configs"
	"github.com/rankforge/core/internal/pkg/pagination"
	"github.com/rankforge/core/internal/pkg/response"
	"github.com/rankforge/core/internal/pkg/taskqueue"
)

type Service struct {
	db      *gorm.DB
	cfgSvc  *appconfigs.Service
	taskSvc *taskqueue.Service
	logger  *zap.Logger
}

func NewService(db *gorm.DB, cfgSvc *appconfigs.Service, taskSvc *taskqueue.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cfgSvc: cfgSvc, taskSvc: taskSvc, logger: logger.Named("GenerationService")}
}

func (s *Service) GeneratePersonas(ctx context.Context, dto generateDTO) (*models.GenerationRecordModel, error) {
	return s.generateList(ctx, KindPersonas, dto)
}

func (s *Service) GenerateTitles(ctx context.Context, dto generateDTO) (*models.GenerationRecordModel, error) {
	return s.generateList(ctx, KindTitles, dto)
}

func (s *Service) GenerateKeywords(ctx context.Context, dto generateDTO) (*models.GenerationRecordModel, error) {
	return s.generateList(ctx, KindKeywords, dto)
}

// generateList runs one orchestrated list-kind generation and persists the
// outcome. The provider chain and orchestrator are rebuilt per request so
// config patches apply without a restart.
func (s *Service) generateList(ctx context.Context, kind string, dto generateDTO) (*models.GenerationRecordModel, error) {
	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return nil, err
	}
	if !cfg.FeatureList.EnableGeneration {
		return nil, errGenerationDisabled
	}

	analysis, analysisJSON, productID, err := s.loadAnalysis(dto.ProductIDs)
	if err != nil {
		return nil, err
	}

	maxTokens := cfg.Generation.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	keyword := strings.TrimSpace(dto.Keyword)

	var (
		prompt   Prompt
		count    int
		fallback func() (string, error)
	)
	switch kind {
	case KindPersonas:
		count = clampCount(dto.Count, defaultPersonaCount, maxPersonaCount)
		prompt = buildPersonasPrompt(analysisJSON, count, maxTokens)
		fallback = func() (string, error) { return marshalListPayload(kind, HeuristicPersonas(analysis)) }
	case KindTitles:
		count = clampCount(dto.Count, defaultTitleCount, maxTitleCount)
		prompt = buildTitlesPrompt(analysisJSON, keyword, count, maxTokens)
		fallback = func() (string, error) { return marshalListPayload(kind, HeuristicTitles(analysis)) }
	case KindKeywords:
		count = clampCount(dto.Count, defaultKeywordCount, maxKeywordCount)
		prompt = buildKeywordsPrompt(analysisJSON, keyword, count, maxTokens)
		fallback = func() (string, error) { return marshalListPayload(kind, HeuristicKeywords(analysis)) }
	default:
		return nil, fmt.Errorf("unsupported generation kind: %s", kind)
	}
	if !cfg.Generation.EnableHeuristicFallback {
		fallback = nil
	}

	orchestrator := NewOrchestrator(cfg.Generation, s.logger)
	started := time.Now()
	outcome, err := orchestrator.Run(ctx, GenerationRequest{
		Prompt:    prompt,
		Providers: buildProviderClients(cfg.AI, assignmentFor(cfg.AI, kind)),
		Validate:  func(raw string) error { _, err := parseListPayload(kind, raw); return err },
		Fallback:  fallback,
	})
	if err != nil {
		return nil, err
	}

	items, err := parseListPayload(kind, outcome.Raw)
	if err != nil {
		return nil, err
	}
	if len(items) > count {
		items = items[:count]
	}
	content, err := marshalListPayload(kind, items)
	if err != nil {
		return nil, err
	}

	record := &models.GenerationRecordModel{
		ProductID:    productID,
		Kind:         kind,
		Keyword:      keyword,
		Content:      content,
		ProviderUsed: outcome.ProviderUsed,
		ModelUsed:    outcome.ModelUsed,
		FallbackUsed: outcome.FallbackUsed,
		AttemptsMade: outcome.AttemptsMade,
		DurationMS:   time.Since(started).Milliseconds(),
		RawError:     outcome.RawError,
		Attempts:     outcome.Attempts,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}

	s.logger.Info("generation recorded",
		zap.String("id", record.ID),
		zap.String("kind", kind),
		zap.String("provider", record.ProviderUsed),
		zap.Bool("fallback", record.FallbackUsed),
		zap.Int64("took_ms", record.DurationMS))
	return record, nil
}

// loadAnalysis builds the batch analysis for the requested products. With no
// ids it falls back to the safe default analysis; the returned pointer is the
// record's product reference when exactly one product was requested.
func (s *Service) loadAnalysis(productIDs []string) (product.Analysis, string, *string, error) {
	var batch []product.Facts
	var primary *string

	if len(productIDs) > 0 {
		var rows []models.ProductModel
		if err := s.db.Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
			return product.Analysis{}, "", nil, err
		}
		if len(rows) == 0 {
			return product.Analysis{}, "", nil, errProductNotFound
		}
		batch = make([]product.Facts, 0, len(rows))
		for i := range rows {
			batch = append(batch, product.FactsFromModel(&rows[i]))
		}
		if len(productIDs) == 1 {
			primary = &rows[0].ID
		}
	}

	analysis := product.Analyze(batch)
	raw, err := json.Marshal(analysis)
	if err != nil {
		return product.Analysis{}, "", nil, err
	}
	return analysis, string(raw), primary, nil
}

func assignmentFor(cfg appcfg.AIConfig, kind string) *appcfg.AIModelAssignment {
	switch kind {
	case KindPersonas:
		return cfg.PersonaModel
	case KindTitles:
		return cfg.TitleModel
	case KindKeywords:
		return cfg.KeywordModel
	case KindBlog:
		return cfg.BlogModel
	}
	return nil
}

func parseListPayload(kind, raw string) ([]string, error) {
	switch kind {
	case KindPersonas:
		return parsePersonas(raw)
	case KindTitles:
		return parseTitles(raw)
	case KindKeywords:
		return parseKeywords(raw)
	}
	return nil, fmt.Errorf("unsupported generation kind: %s", kind)
}

func marshalListPayload(kind string, items []string) (string, error) {
	if len(items) == 0 {
		return "", errors.New("heuristic produced no output")
	}
	var payload interface{}
	switch kind {
	case KindPersonas:
		payload = personasPayload{Personas: items}
	case KindTitles:
		payload = titlesPayload{Titles: items}
	case KindKeywords:
		payload = keywordsPayload{Keywords: items}
	default:
		return "", fmt.Errorf("unsupported generation kind: %s", kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// blogKey is the queue dedup key: one live task per product and keyword.
func blogKey(productID, keyword string) string {
	return fmt.Sprintf("%s:%s:%s", productID, strings.ToLower(strings.TrimSpace(keyword)), KindBlog)
}

// EnqueueBlog creates an async blog generation task, returning the existing
// task when an identical one is already queued or running.
func (s *Service) EnqueueBlog(ctx context.Context, dto blogTaskDTO) (*taskqueue.Task, error) {
	keyword := strings.TrimSpace(dto.Keyword)
	if keyword == "" {
		return nil, errKeywordRequired
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return nil, err
	}
	if !cfg.FeatureList.EnableGeneration {
		return nil, errGenerationDisabled
	}

	productID := strings.TrimSpace(dto.ProductID)
	if productID != "" {
		var count int64
		if err := s.db.Model(&models.ProductModel{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, errProductNotFound
		}
	}

	payload := BlogTaskPayload{
		ProductID: productID,
		Keyword:   keyword,
		Persona:   strings.TrimSpace(dto.Persona),
	}
	task, err := s.taskSvc.Enqueue(ctx, TaskTypeBlog, payload, blogKey(productID, keyword), productID)
	if err != nil {
		return nil, err
	}

	if task.Status == taskqueue.TaskPending {
		go s.executeBlog(context.Background(), task.ID, payload)
	}
	return task, nil
}

func (s *Service) executeBlog(ctx context.Context, taskID string, payload BlogTaskPayload) {
	// Refused transition means the task was cancelled before we got here.
	if err := s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, ""); err != nil {
		return
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}
	if !cfg.FeatureList.EnableGeneration {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, errGenerationDisabled.Error())
		return
	}

	var productIDs []string
	if payload.ProductID != "" {
		productIDs = []string{payload.ProductID}
	}
	_, analysisJSON, productID, err := s.loadAnalysis(productIDs)
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	maxTokens := cfg.Generation.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	orchestrator := NewOrchestrator(cfg.Generation, s.logger)
	started := time.Now()
	outcome, err := orchestrator.Run(ctx, GenerationRequest{
		Prompt:    buildBlogPrompt(analysisJSON, payload.Keyword, payload.Persona, maxTokens),
		Providers: buildProviderClients(cfg.AI, cfg.AI.BlogModel),
		Validate:  func(raw string) error { _, err := parseBlog(raw); return err },
	})
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	blog, err := parseBlog(outcome.Raw)
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	record := &models.GenerationRecordModel{
		ProductID:    productID,
		Kind:         KindBlog,
		Keyword:      payload.Keyword,
		Title:        blog.Title,
		Content:      blog.Content,
		ProviderUsed: outcome.ProviderUsed,
		ModelUsed:    outcome.ModelUsed,
		FallbackUsed: outcome.FallbackUsed,
		AttemptsMade: outcome.AttemptsMade,
		DurationMS:   time.Since(started).Milliseconds(),
		RawError:     outcome.RawError,
		Attempts:     outcome.Attempts,
	}
	if err := s.db.Create(record).Error; err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, gin.H{
		"record_id": record.ID,
		"title":     record.Title,
		"provider":  record.ProviderUsed,
	}, "")
}

// StreamBlog generates a blog post over SSE, emitting token frames as they
// arrive. Providers that cannot stream produce a single frame. The fallback
// chain only advances while no tokens have been sent; once output reaches the
// client a failure ends the stream with an error frame.
func (s *Service) StreamBlog(c *gin.Context, productID, keyword, persona string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(eventType, data string) {
		fmt.Fprintf(c.Writer, "data: %s\n\n", fmt.Sprintf(`{"type":%q,"data":%s}`, eventType, data))
		c.Writer.Flush()
	}
	sendError := func(message string) {
		raw, _ := json.Marshal(message)
		sendEvent("error", string(raw))
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		sendError("keyword is required")
		return
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil || !cfg.FeatureList.EnableGeneration {
		sendError("generation is disabled")
		return
	}

	var productIDs []string
	if productID = strings.TrimSpace(productID); productID != "" {
		productIDs = []string{productID}
	}
	_, analysisJSON, recordProductID, err := s.loadAnalysis(productIDs)
	if err != nil {
		sendError(err.Error())
		return
	}

	providers := buildProviderClients(cfg.AI, cfg.AI.BlogModel)
	if len(providers) == 0 {
		sendError("no enabled AI provider")
		return
	}

	maxTokens := cfg.Generation.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	prompt := buildBlogPrompt(analysisJSON, keyword, strings.TrimSpace(persona), maxTokens)

	ctx := c.Request.Context()
	started := time.Now()
	attempts := make([]models.ProviderAttempt, 0, len(providers))

	for i, provider := range providers {
		tokensSent := false
		raw, err := provider.Stream(ctx, prompt, func(token string) {
			tokensSent = true
			tokenJSON, _ := json.Marshal(token)
			sendEvent("token", string(tokenJSON))
		})
		trace := models.ProviderAttempt{Provider: provider.ID(), Model: provider.Model(), Attempts: 1}
		if err != nil {
			trace.LastError = err.Error()
		}
		attempts = append(attempts, trace)

		if err != nil {
			s.logger.Warn("blog stream provider failed",
				zap.String("provider", provider.ID()),
				zap.Bool("tokens_sent", tokensSent),
				zap.Error(err))
			if tokensSent || i == len(providers)-1 || ctx.Err() != nil {
				sendError(err.Error())
				return
			}
			continue
		}

		blog, err := parseBlog(raw)
		if err != nil {
			sendError(err.Error())
			return
		}

		record := &models.GenerationRecordModel{
			ProductID:    recordProductID,
			Kind:         KindBlog,
			Keyword:      keyword,
			Title:        blog.Title,
			Content:      blog.Content,
			ProviderUsed: provider.ID(),
			ModelUsed:    provider.Model(),
			FallbackUsed: i > 0,
			AttemptsMade: i + 1,
			DurationMS:   time.Since(started).Milliseconds(),
			Attempts:     attempts,
		}
		if err := s.db.Create(record).Error; err != nil {
			sendError(err.Error())
			return
		}

		doneJSON, _ := json.Marshal(gin.H{"record_id": record.ID, "title": record.Title})
		sendEvent("done", string(doneJSON))
		return
	}
}

func (s *Service) ListRecords(q pagination.Query, kind, productID string) ([]models.GenerationRecordModel, response.Pagination, error) {
	query := s.db.Model(&models.GenerationRecordModel{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	query = query.Order("created_at DESC")

	var rows []models.GenerationRecordModel
	p, err := pagination.Paginate(query, q, &rows)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return rows, p, nil
}

func (s *Service) GetRecord(id string) (*models.GenerationRecordModel, error) {
	var record models.GenerationRecordModel
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}
