package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

const vehicleColumns = `id, make, model, year, price, mileage, description, images, status, created_at, updated_at`

// VehiclesRepository handles listing persistence.
type VehiclesRepository struct {
	db *sql.DB
}

// NewVehiclesRepository creates a new vehicles repository.
func NewVehiclesRepository(db *sql.DB) *VehiclesRepository {
	return &VehiclesRepository{db: db}
}

func scanVehicle(row interface{ Scan(...any) error }) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	var images pq.StringArray
	err := row.Scan(
		&v.ID, &v.Make, &v.Model, &v.Year, &v.Price, &v.Mileage,
		&v.Description, &images, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Images = images
	return v, nil
}

// Create inserts a listing.
func (r *VehiclesRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (id, make, model, year, price, mileage, description, images, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Make, v.Model, v.Year, v.Price, v.Mileage,
		v.Description, pq.Array(v.Images), v.Status, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

// GetByID retrieves a listing.
func (r *VehiclesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return scanVehicle(r.db.QueryRowContext(ctx, query, id))
}

// List returns listings newest first, optionally filtered by status.
// A non-nil cursor continues after that listing.
func (r *VehiclesRepository) List(ctx context.Context, status *domain.VehicleStatus, limit int, cursor *uuid.UUID) ([]*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE ($2::text IS NULL OR status = $2)`
	args := []any{limit, statusArg(status)}
	if cursor != nil {
		query += ` AND (created_at, id) < (SELECT created_at, id FROM vehicles WHERE id = $3)`
		args = append(args, *cursor)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// Update replaces a listing's mutable fields.
func (r *VehiclesRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET make = $2, model = $3, year = $4, price = $5, mileage = $6,
		    description = $7, images = $8, status = $9, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		v.ID, v.Make, v.Model, v.Year, v.Price, v.Mileage,
		v.Description, pq.Array(v.Images), v.Status,
	)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrVehicleNotFound)
}

// Delete removes a listing.
func (r *VehiclesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrVehicleNotFound)
}

func statusArg(status *domain.VehicleStatus) any {
	if status == nil {
		return nil
	}
	return string(*status)
}
