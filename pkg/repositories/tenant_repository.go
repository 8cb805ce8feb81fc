package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/database"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// TenantRepository provides central (non-tenant-scoped) access to tenants and
// user identity bindings. It runs before any tenant context exists, so it
// holds the pool directly instead of reading a scope from context.
type TenantRepository interface {
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetTenantByID(ctx context.Context, id uuid.UUID) (*models.TenantConfig, error)
	// GetOrCreateTenantByName provisions a tenant on first use. The passed
	// defaults are only applied on creation.
	GetOrCreateTenantByName(ctx context.Context, defaults *models.TenantConfig) (*models.TenantConfig, error)
}

type tenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *database.DB) TenantRepository {
	return &tenantRepository{db: db}
}

var _ TenantRepository = (*tenantRepository)(nil)

func (r *tenantRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `
		SELECT id, phone_number, display_name, tenant_id, created_at
		FROM users
		WHERE phone_number = $1`

	var user models.User
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&user.ID, &user.PhoneNumber, &user.DisplayName, &user.TenantID, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &user, nil
}

func (r *tenantRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()

	query := `
		INSERT INTO users (id, phone_number, display_name, tenant_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone_number) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		user.ID, user.PhoneNumber, user.DisplayName, user.TenantID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAlreadyBound
	}
	return nil
}

func (r *tenantRepository) GetTenantByID(ctx context.Context, id uuid.UUID) (*models.TenantConfig, error) {
	query := `
		SELECT id, name, default_language, default_currency,
		       cost_center_required, cost_center_label, spreadsheet_id, created_at
		FROM tenants
		WHERE id = $1`

	var t models.TenantConfig
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.DefaultLanguage, &t.DefaultCurrency,
		&t.CostCenterRequired, &t.CostCenterLabel, &t.SpreadsheetID, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

func (r *tenantRepository) GetOrCreateTenantByName(ctx context.Context, defaults *models.TenantConfig) (*models.TenantConfig, error) {
	query := `
		INSERT INTO tenants (name, default_language, default_currency,
		                     cost_center_required, cost_center_label, spreadsheet_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (LOWER(name)) DO UPDATE SET name = tenants.name
		RETURNING id, name, default_language, default_currency,
		          cost_center_required, cost_center_label, spreadsheet_id, created_at`

	var t models.TenantConfig
	err := r.db.QueryRow(ctx, query,
		defaults.Name, defaults.DefaultLanguage, defaults.DefaultCurrency,
		defaults.CostCenterRequired, defaults.CostCenterLabel, defaults.SpreadsheetID,
	).Scan(
		&t.ID, &t.Name, &t.DefaultLanguage, &t.DefaultCurrency,
		&t.CostCenterRequired, &t.CostCenterLabel, &t.SpreadsheetID, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create tenant: %w", err)
	}
	return &t, nil
}
