package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
)

type fakeTenantRepo struct {
	tenants map[uuid.UUID]*models.TenantConfig
	users   map[string]*models.User

	// onCreateUser, when set, replaces the default CreateUser behavior.
	onCreateUser func(user *models.User) error
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{
		tenants: make(map[uuid.UUID]*models.TenantConfig),
		users:   make(map[string]*models.User),
	}
}

func (f *fakeTenantRepo) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	user, ok := f.users[phone]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (f *fakeTenantRepo) CreateUser(ctx context.Context, user *models.User) error {
	if f.onCreateUser != nil {
		return f.onCreateUser(user)
	}
	if _, ok := f.users[user.PhoneNumber]; ok {
		return apperrors.ErrAlreadyBound
	}
	user.ID = uuid.New()
	f.users[user.PhoneNumber] = user
	return nil
}

func (f *fakeTenantRepo) GetTenantByID(ctx context.Context, id uuid.UUID) (*models.TenantConfig, error) {
	tenant, ok := f.tenants[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return tenant, nil
}

func (f *fakeTenantRepo) GetOrCreateTenantByName(ctx context.Context, defaults *models.TenantConfig) (*models.TenantConfig, error) {
	for _, t := range f.tenants {
		if t.Name == defaults.Name {
			return t, nil
		}
	}
	tenant := *defaults
	tenant.ID = uuid.New()
	f.tenants[tenant.ID] = &tenant
	return &tenant, nil
}

func testDefaults() config.TenantDefaults {
	return config.TenantDefaults{
		Name:               "default",
		Language:           "es",
		Currency:           "USD",
		CostCenterLabel:    "property/unit",
		CostCenterRequired: true,
		SpreadsheetID:      "sheet-1",
	}
}

func TestTenantResolver_Resolve_ProvisionsFirstContact(t *testing.T) {
	repo := newFakeTenantRepo()
	resolver := NewTenantResolver(repo, &fakeTaxonomyRepo{}, testDefaults(), zap.NewNop())

	user, tenant, err := resolver.Resolve(context.Background(), "+5215550001111")
	require.NoError(t, err)

	assert.Equal(t, "+5215550001111", user.PhoneNumber)
	assert.Equal(t, tenant.ID, user.TenantID)
	assert.Equal(t, "default", tenant.Name)
	assert.Equal(t, "es", tenant.DefaultLanguage)
	assert.True(t, tenant.CostCenterRequired)
	assert.Equal(t, "sheet-1", tenant.SpreadsheetID)
}

func TestTenantResolver_Resolve_ExistingUserKeepsBinding(t *testing.T) {
	repo := newFakeTenantRepo()
	resolver := NewTenantResolver(repo, &fakeTaxonomyRepo{}, testDefaults(), zap.NewNop())

	first, firstTenant, err := resolver.Resolve(context.Background(), "+5215550001111")
	require.NoError(t, err)

	again, againTenant, err := resolver.Resolve(context.Background(), "+5215550001111")
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, firstTenant.ID, againTenant.ID)
	assert.Len(t, repo.users, 1)
	assert.Len(t, repo.tenants, 1)
}

func TestTenantResolver_Resolve_SecondUserJoinsSameTenant(t *testing.T) {
	repo := newFakeTenantRepo()
	resolver := NewTenantResolver(repo, &fakeTaxonomyRepo{}, testDefaults(), zap.NewNop())

	_, tenantA, err := resolver.Resolve(context.Background(), "+5215550001111")
	require.NoError(t, err)
	_, tenantB, err := resolver.Resolve(context.Background(), "+5215550002222")
	require.NoError(t, err)

	assert.Equal(t, tenantA.ID, tenantB.ID, "single-tenant defaults bind everyone together")
}

func TestTenantResolver_Resolve_ProvisionRaceRereadsWinner(t *testing.T) {
	repo := newFakeTenantRepo()
	resolver := NewTenantResolver(repo, &fakeTaxonomyRepo{}, testDefaults(), zap.NewNop())

	// Simulate the losing side of a concurrent first contact: by the time
	// CreateUser runs, another worker already inserted the binding. The
	// resolver must re-read and return the winning row.
	winnerID := uuid.New()
	repo.onCreateUser = func(user *models.User) error {
		repo.users[user.PhoneNumber] = &models.User{
			ID:          winnerID,
			PhoneNumber: user.PhoneNumber,
			TenantID:    user.TenantID,
		}
		return apperrors.ErrAlreadyBound
	}

	user, tenant, err := resolver.Resolve(context.Background(), "+5215550001111")
	require.NoError(t, err)
	assert.Equal(t, winnerID, user.ID, "the winning binding is returned, not a second insert")
	assert.Equal(t, "default", tenant.Name)
}

func TestTenantResolver_Refresh_LoadsTaxonomies(t *testing.T) {
	repo := newFakeTenantRepo()
	taxonomy := &fakeTaxonomyRepo{
		categories:  []string{"Maintenance"},
		costCenters: []string{"Unit 1A"},
	}
	resolver := NewTenantResolver(repo, taxonomy, testDefaults(), zap.NewNop())

	tenant := &models.TenantConfig{ID: uuid.New()}
	require.NoError(t, resolver.Refresh(context.Background(), tenant))

	assert.Equal(t, []string{"Maintenance"}, tenant.Categories)
	assert.Equal(t, []string{"Unit 1A"}, tenant.CostCenters)
}
