package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
	"github.com/atina-inc/atina-engine/pkg/repositories"
)

// TenantResolver maps an inbound phone number to its tenant, provisioning
// the default tenant and user binding on first contact.
type TenantResolver interface {
	// Resolve returns the user and tenant for a phone number. The tenant's
	// taxonomy snapshot is NOT loaded; call Refresh once a tenant scope is
	// established.
	Resolve(ctx context.Context, phone string) (*models.User, *models.TenantConfig, error)
	// Refresh loads the taxonomy snapshot into the tenant config. Requires
	// a tenant scope in context.
	Refresh(ctx context.Context, tenant *models.TenantConfig) error
}

type tenantResolver struct {
	tenantRepo   repositories.TenantRepository
	taxonomyRepo repositories.TaxonomyRepository
	defaults     config.TenantDefaults
	logger       *zap.Logger
}

// NewTenantResolver creates a TenantResolver.
func NewTenantResolver(
	tenantRepo repositories.TenantRepository,
	taxonomyRepo repositories.TaxonomyRepository,
	defaults config.TenantDefaults,
	logger *zap.Logger,
) TenantResolver {
	return &tenantResolver{
		tenantRepo:   tenantRepo,
		taxonomyRepo: taxonomyRepo,
		defaults:     defaults,
		logger:       logger.Named("tenants"),
	}
}

var _ TenantResolver = (*tenantResolver)(nil)

func (s *tenantResolver) Resolve(ctx context.Context, phone string) (*models.User, *models.TenantConfig, error) {
	user, err := s.tenantRepo.GetUserByPhone(ctx, phone)
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.provision(ctx, phone)
	}
	if err != nil {
		return nil, nil, err
	}

	tenant, err := s.tenantRepo.GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("user %s references unknown tenant: %w", phone, err)
	}
	return user, tenant, nil
}

// provision binds a never-seen phone number to the default tenant. The
// binding is permanent; moving a user between tenants is an operator task.
func (s *tenantResolver) provision(ctx context.Context, phone string) (*models.User, *models.TenantConfig, error) {
	tenant, err := s.tenantRepo.GetOrCreateTenantByName(ctx, &models.TenantConfig{
		Name:               s.defaults.Name,
		DefaultLanguage:    s.defaults.Language,
		DefaultCurrency:    s.defaults.Currency,
		CostCenterRequired: s.defaults.CostCenterRequired,
		CostCenterLabel:    s.defaults.CostCenterLabel,
		SpreadsheetID:      s.defaults.SpreadsheetID,
	})
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{PhoneNumber: phone, TenantID: tenant.ID}
	err = s.tenantRepo.CreateUser(ctx, user)
	if errors.Is(err, apperrors.ErrAlreadyBound) {
		// Concurrent first contact; re-read the winning binding.
		user, err = s.tenantRepo.GetUserByPhone(ctx, phone)
	}
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Provisioned new user",
		zap.String("phone", phone),
		zap.String("tenant", tenant.Name))
	return user, tenant, nil
}

func (s *tenantResolver) Refresh(ctx context.Context, tenant *models.TenantConfig) error {
	categories, err := s.taxonomyRepo.ListCategories(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	costCenters, err := s.taxonomyRepo.ListCostCenters(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to load cost centers: %w", err)
	}

	tenant.Categories = categories
	tenant.CostCenters = costCenters
	return nil
}
