package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ringtap/ringtap/internal/errs"
	"github.com/ringtap/ringtap/internal/model"
)

// ModelRepo implements ModelRepository using PostgreSQL.
type ModelRepo struct{ db *DB }

// NewModelRepo constructs a ring model repository.
func NewModelRepo(db *DB) *ModelRepo { return &ModelRepo{db: db} }

// GetModel loads one catalog row by model id.
func (r *ModelRepo) GetModel(ctx context.Context, id string) (*model.RingModel, error) {
	const q = `
SELECT id, name, model_url, thumbnail_url
FROM ring_models WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var m model.RingModel
	if err := row.Scan(&m.ID, &m.Name, &m.ModelURL, &m.ThumbnailURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
