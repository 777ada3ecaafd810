package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/sneakerdex/internal/model"
)

// ErrNotFound is returned when a write targets a row that does not exist.
var ErrNotFound = errors.New("not found")

const sneakerColumns = `id, owner_id, brand, model, description, style_code, size_eu, size_us,
	condition, status, price_paid, estimated_value, images, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateSneaker inserts a sneaker and returns the stored row. An ID is
// generated when s.ID is empty.
func CreateSneaker(ctx context.Context, db *sql.DB, s *model.Sneaker) (*model.Sneaker, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = model.StatusStocking
	}
	images, err := encodeImages(s.Images)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO sneakers (id, owner_id, brand, model, description, style_code, size_eu, size_us,
		                       condition, status, price_paid, estimated_value, images)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, s.Brand, s.Model, s.Description, s.StyleCode, s.SizeEU, s.SizeUS,
		s.Condition, string(s.Status), s.PricePaid, s.EstimatedValue, images,
	)
	if err != nil {
		return nil, fmt.Errorf("creating sneaker: %w", err)
	}

	return GetSneaker(ctx, db, s.OwnerID, s.ID)
}

// GetSneaker returns an owner's sneaker by ID, or nil if it does not exist.
func GetSneaker(ctx context.Context, db *sql.DB, ownerID int64, id string) (*model.Sneaker, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+sneakerColumns+` FROM sneakers WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	s, err := scanSneaker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sneaker: %w", err)
	}
	return s, nil
}

// ListSneakers returns an owner's full collection in insertion order.
func ListSneakers(ctx context.Context, db *sql.DB, ownerID int64) ([]model.Sneaker, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+sneakerColumns+` FROM sneakers WHERE owner_id = ? ORDER BY created_at, rowid`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sneakers: %w", err)
	}
	defer rows.Close()

	var sneakers []model.Sneaker
	for rows.Next() {
		s, err := scanSneaker(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sneaker: %w", err)
		}
		sneakers = append(sneakers, *s)
	}
	return sneakers, rows.Err()
}

// UpdateSneaker overwrites a sneaker's editable fields.
func UpdateSneaker(ctx context.Context, db *sql.DB, s *model.Sneaker) error {
	images, err := encodeImages(s.Images)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE sneakers SET brand = ?, model = ?, description = ?, style_code = ?, size_eu = ?, size_us = ?,
		        condition = ?, status = ?, price_paid = ?, estimated_value = ?, images = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ?`,
		s.Brand, s.Model, s.Description, s.StyleCode, s.SizeEU, s.SizeUS,
		s.Condition, string(s.Status), s.PricePaid, s.EstimatedValue, images,
		s.ID, s.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("updating sneaker: %w", err)
	}
	return expectAffected(result)
}

// DeleteSneaker removes a sneaker from its owner's collection.
func DeleteSneaker(ctx context.Context, db *sql.DB, ownerID int64, id string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM sneakers WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting sneaker: %w", err)
	}
	return expectAffected(result)
}

// StyleCodeTaken reports whether the owner already has a sneaker with the
// given style code. The sneaker with ID excludeID is ignored so that an edit
// does not conflict with itself.
func StyleCodeTaken(ctx context.Context, db *sql.DB, ownerID int64, styleCode, excludeID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sneakers WHERE owner_id = ? AND style_code = ? COLLATE NOCASE AND id != ?`,
		ownerID, styleCode, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking style code: %w", err)
	}
	return count > 0, nil
}

func scanSneaker(row rowScanner) (*model.Sneaker, error) {
	s := &model.Sneaker{}
	var description, styleCode sql.NullString
	var sizeEU, sizeUS, condition, pricePaid, estimated sql.NullFloat64
	var status, images string
	err := row.Scan(&s.ID, &s.OwnerID, &s.Brand, &s.Model, &description, &styleCode, &sizeEU, &sizeUS,
		&condition, &status, &pricePaid, &estimated, &images, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Description = description.String
	s.StyleCode = styleCode.String
	s.SizeEU = nullFloat(sizeEU)
	s.SizeUS = nullFloat(sizeUS)
	s.Condition = nullFloat(condition)
	s.Status = model.Status(status)
	s.PricePaid = nullFloat(pricePaid)
	s.EstimatedValue = nullFloat(estimated)
	if err := json.Unmarshal([]byte(images), &s.Images); err != nil {
		return nil, fmt.Errorf("decoding images: %w", err)
	}
	if s.Images == nil {
		s.Images = []string{}
	}
	return s, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encoding images: %w", err)
	}
	return string(data), nil
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
