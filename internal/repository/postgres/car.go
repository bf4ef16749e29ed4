package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

const carColumns = `id, make, model, year, price, description, color, brand, is_rented, created_at, updated_at`

// CarRepository is a PostgreSQL implementation of repository.CarRepository.
type CarRepository struct {
	q Querier
}

// NewCarRepository creates a new PostgreSQL car repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{q: db}
}

// NewCarRepositoryWithTx creates a car repository using a transaction.
func NewCarRepositoryWithTx(tx *sql.Tx) *CarRepository {
	return &CarRepository{q: tx}
}

// Create persists a new car.
func (r *CarRepository) Create(ctx context.Context, car *domain.Car) error {
	query := `
		INSERT INTO cars (` + carColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		car.ID,
		car.Make,
		car.Model,
		car.Year,
		car.Price,
		car.Description,
		car.Color,
		car.Brand,
		car.IsRented,
		car.CreatedAt,
		car.UpdatedAt,
	)

	return mapError(err)
}

// GetByID retrieves a car by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1`

	car, err := scanCar(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return car, nil
}

// GetAll retrieves all cars.
func (r *CarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	return r.list(ctx, `SELECT `+carColumns+` FROM cars ORDER BY created_at DESC`)
}

// Search retrieves cars matching the filter.
func (r *CarRepository) Search(ctx context.Context, filter repository.CarFilter) ([]*domain.Car, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Make != "" {
		add("make ILIKE $%d ESCAPE '\\'", likePattern(filter.Make))
	}
	if filter.Model != "" {
		add("model ILIKE $%d ESCAPE '\\'", likePattern(filter.Model))
	}
	if filter.Brand != "" {
		add("brand ILIKE $%d ESCAPE '\\'", likePattern(filter.Brand))
	}
	if filter.Color != "" {
		add("color ILIKE $%d ESCAPE '\\'", likePattern(filter.Color))
	}
	if filter.Year != 0 {
		add("year = $%d", filter.Year)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.Available {
		conds = append(conds, "is_rented = false")
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	return r.list(ctx, query, args...)
}

// likePattern matches term as a literal substring.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Update updates an existing car.
func (r *CarRepository) Update(ctx context.Context, car *domain.Car) error {
	query := `
		UPDATE cars
		SET make = $1, model = $2, year = $3, price = $4, description = $5, color = $6, brand = $7, is_rented = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		car.Make,
		car.Model,
		car.Year,
		car.Price,
		car.Description,
		car.Color,
		car.Brand,
		car.IsRented,
		car.UpdatedAt,
		car.ID,
	)
	if err != nil {
		return mapError(err)
	}

	return expectAffected(result)
}

// Delete removes a car.
func (r *CarRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}

	return expectAffected(result)
}

// SetRented updates the rented flag of a car.
func (r *CarRepository) SetRented(ctx context.Context, id string, rented bool) error {
	query := `UPDATE cars SET is_rented = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, rented, id)
	if err != nil {
		return err
	}

	return expectAffected(result)
}

// ReleaseIdle clears the rented flag of cars with no paid rental ending after now.
func (r *CarRepository) ReleaseIdle(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE cars c
		SET is_rented = false, updated_at = NOW()
		WHERE c.is_rented = true
		AND NOT EXISTS (
			SELECT 1 FROM rentals r
			WHERE r.car_id = c.id
			AND r.status = 'paid'
			AND r.end_date > $1
		)
	`

	result, err := r.q.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *CarRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Car, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := make([]*domain.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(s rowScanner) (*domain.Car, error) {
	var car domain.Car
	var description, color, brand sql.NullString

	if err := s.Scan(
		&car.ID,
		&car.Make,
		&car.Model,
		&car.Year,
		&car.Price,
		&description,
		&color,
		&brand,
		&car.IsRented,
		&car.CreatedAt,
		&car.UpdatedAt,
	); err != nil {
		return nil, err
	}

	car.Description = description.String
	car.Color = color.String
	car.Brand = brand.String

	return &car, nil
}

func expectAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
