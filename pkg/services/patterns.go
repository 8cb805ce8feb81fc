package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/repositories"
)

// PatternService surfaces and records learned merchant-to-assignment
// patterns.
type PatternService interface {
	// Suggest returns the best learned assignment for a receipt, or nil
	// when no pattern clears the confirmation threshold.
	Suggest(ctx context.Context, tenantID uuid.UUID, merchant string, items []models.LineItem) (*models.PatternSuggestion, error)
	// Learn records a finalized draft's assignment. Drafts carrying skip
	// sentinels are never learned.
	Learn(ctx context.Context, tenantID uuid.UUID, draft *models.DraftRecord) error
}

type patternService struct {
	patternRepo repositories.PatternRepository
	cfg         config.PatternConfig
	logger      *zap.Logger
}

// NewPatternService creates a PatternService.
func NewPatternService(patternRepo repositories.PatternRepository, cfg config.PatternConfig, logger *zap.Logger) PatternService {
	return &patternService{
		patternRepo: patternRepo,
		cfg:         cfg,
		logger:      logger.Named("patterns"),
	}
}

var _ PatternService = (*patternService)(nil)

// normalizeMerchant canonicalizes merchant names so "Home Depot " and
// "home depot" hit the same patterns.
func normalizeMerchant(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func (s *patternService) Suggest(ctx context.Context, tenantID uuid.UUID, merchant string, items []models.LineItem) (*models.PatternSuggestion, error) {
	merchant = normalizeMerchant(merchant)
	if merchant == "" {
		return nil, nil
	}

	patterns, err := s.patternRepo.FindByMerchant(ctx, tenantID, merchant)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	incoming := ExtractKeywords(items, s.cfg.MaxKeywords)
	matches := RankMatches(patterns, incoming, &s.cfg)
	suggestion := BestSuggestion(matches, s.cfg.SuggestThreshold)

	if suggestion != nil {
		s.logger.Debug("Pattern suggestion",
			zap.String("merchant", merchant),
			zap.String("category", suggestion.Category),
			zap.Int("similarity", suggestion.Similarity))
	}
	return suggestion, nil
}

func (s *patternService) Learn(ctx context.Context, tenantID uuid.UUID, draft *models.DraftRecord) error {
	merchant := normalizeMerchant(draft.MerchantName)
	if merchant == "" || draft.Category == "" {
		return nil
	}
	if draft.HasSentinelSlots() {
		return nil
	}

	pattern := &models.Pattern{
		TenantID:     tenantID,
		Merchant:     merchant,
		ItemKeywords: ExtractKeywords(draft.LineItems, s.cfg.MaxKeywords),
		Category:     draft.Category,
		CostCenter:   draft.CostCenter,
	}
	if err := s.patternRepo.Learn(ctx, pattern); err != nil {
		return err
	}

	s.logger.Info("Learned pattern",
		zap.String("merchant", merchant),
		zap.String("category", pattern.Category),
		zap.Int("frequency", pattern.Frequency))
	return nil
}
