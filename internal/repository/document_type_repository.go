package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

const documentTypeColumns = `id, name, description, processing_days, fee, is_active, created_at, updated_at`

// DocumentTypeRepository provides database access for the document catalog.
type DocumentTypeRepository struct {
	db *sqlx.DB
}

// NewDocumentTypeRepository creates a new instance.
func NewDocumentTypeRepository(db *sqlx.DB) *DocumentTypeRepository {
	return &DocumentTypeRepository{db: db}
}

// FindByID returns a document type by identifier.
func (r *DocumentTypeRepository) FindByID(ctx context.Context, id string) (*models.DocumentType, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_types WHERE id = $1 LIMIT 1`, documentTypeColumns)
	var dt models.DocumentType
	if err := r.db.GetContext(ctx, &dt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document type: %w", err)
	}
	return &dt, nil
}

// ListActive returns the active catalog entries shown to requesters.
func (r *DocumentTypeRepository) ListActive(ctx context.Context) ([]models.DocumentType, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_types WHERE is_active = TRUE ORDER BY name`, documentTypeColumns)
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list active document types: %w", err)
	}
	return types, nil
}

// ListWithStats returns every catalog entry with its request count and
// accumulated revenue, for the admin catalog page.
func (r *DocumentTypeRepository) ListWithStats(ctx context.Context) ([]models.DocumentTypeStat, error) {
	const query = `SELECT dt.id, dt.name, dt.description, dt.processing_days, dt.fee, dt.is_active, dt.created_at, dt.updated_at,
	COUNT(dr.id) AS request_count, COALESCE(SUM(dr.total_amount), 0) AS total_revenue
	FROM document_types dt
	LEFT JOIN document_requests dr ON dr.document_type_id = dt.id
	GROUP BY dt.id
	ORDER BY dt.name`
	var stats []models.DocumentTypeStat
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("list document type stats: %w", err)
	}
	return stats, nil
}

// CountRequests returns how many requests reference the document type.
func (r *DocumentTypeRepository) CountRequests(ctx context.Context, id string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM document_requests WHERE document_type_id = $1`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count document type requests: %w", err)
	}
	return count, nil
}

// Create inserts a new catalog entry.
func (r *DocumentTypeRepository) Create(ctx context.Context, dt *models.DocumentType) error {
	if dt.ID == "" {
		dt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if dt.CreatedAt.IsZero() {
		dt.CreatedAt = now
	}
	dt.UpdatedAt = now

	const query = `INSERT INTO document_types (id, name, description, processing_days, fee, is_active, created_at, updated_at) VALUES (:id, :name, :description, :processing_days, :fee, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dt); err != nil {
		return fmt.Errorf("create document type: %w", err)
	}
	return nil
}

// Update persists mutable catalog fields.
func (r *DocumentTypeRepository) Update(ctx context.Context, dt *models.DocumentType) error {
	dt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_types SET name = :name, description = :description, processing_days = :processing_days, fee = :fee, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, dt); err != nil {
		return fmt.Errorf("update document type: %w", err)
	}
	return nil
}

// Delete removes a catalog entry. Callers must verify the referential
// guard (no referencing requests) first.
func (r *DocumentTypeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM document_types WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete document type: %w", err)
	}
	return nil
}
