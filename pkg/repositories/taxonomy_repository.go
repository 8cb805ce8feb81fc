package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/database"
)

// TaxonomyRepository provides tenant-scoped access to the category and
// cost-center taxonomies. All methods require a tenant scope in context.
type TaxonomyRepository interface {
	ListCategories(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	AddCategory(ctx context.Context, tenantID uuid.UUID, name string) error
	DeleteCategory(ctx context.Context, tenantID uuid.UUID, name string) error
	// EnsureCategory inserts name if no case-insensitive match exists and
	// returns the canonical stored form.
	EnsureCategory(ctx context.Context, tenantID uuid.UUID, name string) (string, error)

	ListCostCenters(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	AddCostCenter(ctx context.Context, tenantID uuid.UUID, name string) error
	DeleteCostCenter(ctx context.Context, tenantID uuid.UUID, name string) error
	EnsureCostCenter(ctx context.Context, tenantID uuid.UUID, name string) (string, error)
}

type taxonomyRepository struct{}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository() TaxonomyRepository {
	return &taxonomyRepository{}
}

var _ TaxonomyRepository = (*taxonomyRepository)(nil)

func (r *taxonomyRepository) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return r.list(ctx, "categories", tenantID)
}

func (r *taxonomyRepository) AddCategory(ctx context.Context, tenantID uuid.UUID, name string) error {
	return r.add(ctx, "categories", tenantID, name)
}

func (r *taxonomyRepository) DeleteCategory(ctx context.Context, tenantID uuid.UUID, name string) error {
	return r.delete(ctx, "categories", tenantID, name)
}

func (r *taxonomyRepository) EnsureCategory(ctx context.Context, tenantID uuid.UUID, name string) (string, error) {
	return r.ensure(ctx, "categories", tenantID, name)
}

func (r *taxonomyRepository) ListCostCenters(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return r.list(ctx, "cost_centers", tenantID)
}

func (r *taxonomyRepository) AddCostCenter(ctx context.Context, tenantID uuid.UUID, name string) error {
	return r.add(ctx, "cost_centers", tenantID, name)
}

func (r *taxonomyRepository) DeleteCostCenter(ctx context.Context, tenantID uuid.UUID, name string) error {
	return r.delete(ctx, "cost_centers", tenantID, name)
}

func (r *taxonomyRepository) EnsureCostCenter(ctx context.Context, tenantID uuid.UUID, name string) (string, error) {
	return r.ensure(ctx, "cost_centers", tenantID, name)
}

// The two taxonomy tables share an identical shape, so the queries are built
// from a table-name whitelist rather than duplicated per type.
func (r *taxonomyRepository) list(ctx context.Context, table string, tenantID uuid.UUID) ([]string, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := fmt.Sprintf(
		`SELECT name FROM %s WHERE tenant_id = $1 ORDER BY LOWER(name)`, table)

	rows, err := scope.Conn.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *taxonomyRepository) add(ctx context.Context, table string, tenantID uuid.UUID, name string) error {
	if name == "" {
		return apperrors.ErrEmptyName
	}
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, LOWER(name)) DO NOTHING`, table)

	tag, err := scope.Conn.Exec(ctx, query, tenantID, name)
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *taxonomyRepository) delete(ctx context.Context, table string, tenantID uuid.UUID, name string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	query := fmt.Sprintf(
		`DELETE FROM %s WHERE tenant_id = $1 AND LOWER(name) = LOWER($2)`, table)

	tag, err := scope.Conn.Exec(ctx, query, tenantID, name)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *taxonomyRepository) ensure(ctx context.Context, table string, tenantID uuid.UUID, name string) (string, error) {
	if name == "" {
		return "", apperrors.ErrEmptyName
	}
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return "", fmt.Errorf("no tenant scope in context")
	}

	// Return the stored casing when a case-insensitive match already exists.
	selectQuery := fmt.Sprintf(
		`SELECT name FROM %s WHERE tenant_id = $1 AND LOWER(name) = LOWER($2)`, table)

	var canonical string
	err := scope.Conn.QueryRow(ctx, selectQuery, tenantID, name).Scan(&canonical)
	if err == nil {
		return canonical, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to look up %s: %w", table, err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, LOWER(name)) DO NOTHING
		RETURNING name`, table)

	err = scope.Conn.QueryRow(ctx, insertQuery, tenantID, name).Scan(&canonical)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with a concurrent insert; the stored form wins.
		if err := scope.Conn.QueryRow(ctx, selectQuery, tenantID, name).Scan(&canonical); err != nil {
			return "", fmt.Errorf("failed to re-read %s after conflict: %w", table, err)
		}
		return canonical, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return canonical, nil
}
