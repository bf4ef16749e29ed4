package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

const rentalColumns = `id, user_id, car_id, start_date, end_date, total_price, status, tx_ref, created_at, updated_at`

// RentalRepository is a PostgreSQL implementation of repository.RentalRepository.
type RentalRepository struct {
	q Querier
}

// NewRentalRepository creates a new PostgreSQL rental repository.
func NewRentalRepository(db *sql.DB) *RentalRepository {
	return &RentalRepository{q: db}
}

// NewRentalRepositoryWithTx creates a rental repository using a transaction.
func NewRentalRepositoryWithTx(tx *sql.Tx) *RentalRepository {
	return &RentalRepository{q: tx}
}

// Create persists a new rental.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	query := `
		INSERT INTO rentals (` + rentalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var txRef sql.NullString
	if rental.TxRef != "" {
		txRef = sql.NullString{String: rental.TxRef, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		rental.ID,
		rental.UserID,
		rental.CarID,
		rental.StartDate,
		rental.EndDate,
		rental.TotalPrice,
		rental.Status,
		txRef,
		rental.CreatedAt,
		rental.UpdatedAt,
	)

	return mapError(err)
}

// GetByID retrieves a rental by ID.
func (r *RentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByTxRef retrieves a rental by its payment correlation reference.
func (r *RentalRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE tx_ref = $1`
	return r.getOne(ctx, query, txRef)
}

// FindOverlapping returns rentals of the car whose dates intersect [start, end].
func (r *RentalRepository) FindOverlapping(ctx context.Context, carID string, start, end time.Time, statuses []domain.RentalStatus) ([]*domain.Rental, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE car_id = $1
		AND start_date <= $2
		AND end_date >= $3
		AND status = ANY($4)
		ORDER BY start_date
	`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.q.QueryContext(ctx, query, carID, end, start, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []*domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}

// TransitionStatus moves a rental from one status to another in a single
// conditional update.
func (r *RentalRepository) TransitionStatus(ctx context.Context, id string, from, to domain.RentalStatus) (bool, error) {
	query := `UPDATE rentals SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	result, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

func (r *RentalRepository) getOne(ctx context.Context, query string, arg any) (*domain.Rental, error) {
	rental, err := scanRental(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rental, nil
}

func scanRental(s rowScanner) (*domain.Rental, error) {
	var rental domain.Rental
	var txRef sql.NullString

	if err := s.Scan(
		&rental.ID,
		&rental.UserID,
		&rental.CarID,
		&rental.StartDate,
		&rental.EndDate,
		&rental.TotalPrice,
		&rental.Status,
		&txRef,
		&rental.CreatedAt,
		&rental.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if txRef.Valid {
		rental.TxRef = txRef.String
	}

	return &rental, nil
}
