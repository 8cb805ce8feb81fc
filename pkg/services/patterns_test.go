package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
)

type fakePatternRepo struct {
	patterns map[string][]*models.Pattern
	learned  []*models.Pattern
}

func newFakePatternRepo() *fakePatternRepo {
	return &fakePatternRepo{patterns: make(map[string][]*models.Pattern)}
}

func (f *fakePatternRepo) FindByMerchant(ctx context.Context, tenantID uuid.UUID, merchant string) ([]*models.Pattern, error) {
	return f.patterns[merchant], nil
}

func (f *fakePatternRepo) Learn(ctx context.Context, pattern *models.Pattern) error {
	pattern.Frequency = 1
	f.learned = append(f.learned, pattern)
	return nil
}

func testPatternConfig() config.PatternConfig {
	return config.PatternConfig{
		SuggestThreshold: 60,
		PartialScore:     50,
		PerfectScore:     100,
		MaxKeywords:      10,
	}
}

func newPatternService(repo *fakePatternRepo) PatternService {
	return NewPatternService(repo, testPatternConfig(), zap.NewNop())
}

func TestPatternService_Suggest_NormalizesMerchant(t *testing.T) {
	repo := newFakePatternRepo()
	repo.patterns["home depot"] = []*models.Pattern{
		{Merchant: "home depot", Category: "Maintenance", CostCenter: "Unit 1A", Frequency: 4},
	}
	svc := newPatternService(repo)

	suggestion, err := svc.Suggest(context.Background(), uuid.New(), "  Home   DEPOT ", nil)
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "Maintenance", suggestion.Category)
	assert.Equal(t, "Unit 1A", suggestion.CostCenter)
}

func TestPatternService_Suggest_EmptyMerchant(t *testing.T) {
	svc := newPatternService(newFakePatternRepo())

	suggestion, err := svc.Suggest(context.Background(), uuid.New(), "   ", nil)
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestPatternService_Suggest_UnknownMerchant(t *testing.T) {
	svc := newPatternService(newFakePatternRepo())

	suggestion, err := svc.Suggest(context.Background(), uuid.New(), "OXXO", nil)
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestPatternService_Suggest_BelowThreshold(t *testing.T) {
	repo := newFakePatternRepo()
	repo.patterns["home depot"] = []*models.Pattern{
		{
			Merchant:     "home depot",
			Category:     "Maintenance",
			ItemKeywords: []string{"paint", "brushes", "rollers"},
			Frequency:    2,
		},
	}
	svc := newPatternService(repo)

	// Disjoint keyword sets score 0, well under the threshold.
	items := []models.LineItem{{Description: "garden hose", Amount: 20}}
	suggestion, err := svc.Suggest(context.Background(), uuid.New(), "Home Depot", items)
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestPatternService_Learn_StoresNormalizedAssignment(t *testing.T) {
	repo := newFakePatternRepo()
	svc := newPatternService(repo)

	draft := &models.DraftRecord{
		MerchantName: " Home   Depot ",
		Category:     "Maintenance",
		CostCenter:   "Unit 1A",
		LineItems: []models.LineItem{
			{Description: "Galvanized Nails 2in", Amount: 3.99},
		},
	}
	require.NoError(t, svc.Learn(context.Background(), uuid.New(), draft))

	require.Len(t, repo.learned, 1)
	assert.Equal(t, "home depot", repo.learned[0].Merchant)
	assert.Equal(t, "Maintenance", repo.learned[0].Category)
	assert.Contains(t, repo.learned[0].ItemKeywords, "galvanized")
	assert.Contains(t, repo.learned[0].ItemKeywords, "nails")
}

func TestPatternService_Learn_SkipsSentinelDrafts(t *testing.T) {
	repo := newFakePatternRepo()
	svc := newPatternService(repo)

	draft := &models.DraftRecord{
		MerchantName: "Home Depot",
		Category:     "Maintenance",
		CostCenter:   models.SentinelCostCenter,
	}
	require.NoError(t, svc.Learn(context.Background(), uuid.New(), draft))
	assert.Empty(t, repo.learned)
}

func TestPatternService_Learn_SkipsIncompleteDrafts(t *testing.T) {
	repo := newFakePatternRepo()
	svc := newPatternService(repo)

	require.NoError(t, svc.Learn(context.Background(), uuid.New(), &models.DraftRecord{
		MerchantName: "Home Depot",
	}))
	require.NoError(t, svc.Learn(context.Background(), uuid.New(), &models.DraftRecord{
		Category: "Maintenance",
	}))
	assert.Empty(t, repo.learned)
}
