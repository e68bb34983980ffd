package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ringtap/ringtap/internal/errs"
	"github.com/ringtap/ringtap/internal/model"
)

// RingRepo implements RingRepository using PostgreSQL.
type RingRepo struct{ db *DB }

// NewRingRepo constructs a ring repository.
func NewRingRepo(db *DB) *RingRepo { return &RingRepo{db: db} }

// EnsureExists inserts an unclaimed ring row if none exists yet.
// ON CONFLICT DO NOTHING makes concurrent first touches of the same uid
// converge on a single row without surfacing an error.
func (r *RingRepo) EnsureExists(ctx context.Context, chipUID string) error {
	const q = `
INSERT INTO rings (chip_uid, status, owner_user_id)
VALUES ($1, 'unclaimed', NULL)
ON CONFLICT (chip_uid) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, chipUID)
	if isUniqueViolation(err) {
		// already exists; treat exactly like DO NOTHING
		return nil
	}
	return err
}

// Get loads a ring by chip uid.
func (r *RingRepo) Get(ctx context.Context, chipUID string) (*model.Ring, error) {
	const q = `
SELECT chip_uid, status, owner_user_id, ring_model, updated_at, created_at
FROM rings WHERE chip_uid=$1`
	row := r.db.Pool.QueryRow(ctx, q, chipUID)
	return scanRing(row)
}

// Claim performs the conditional upsert that is the sole race-breaker for
// concurrent claims: the row is created claimed if absent, and the update
// fires only when the ring is ownerless or already owned by the same user.
// Zero rows back means a different owner holds it; the follow-up read only
// serves the error message.
func (r *RingRepo) Claim(ctx context.Context, chipUID, userID string) (*model.Ring, error) {
	const q = `
INSERT INTO rings (chip_uid, status, owner_user_id, updated_at)
VALUES ($1, 'claimed', $2, now())
ON CONFLICT (chip_uid) DO UPDATE
SET status='claimed', owner_user_id=EXCLUDED.owner_user_id, updated_at=now()
WHERE rings.owner_user_id IS NULL OR rings.owner_user_id = EXCLUDED.owner_user_id
RETURNING chip_uid, status, owner_user_id, ring_model, updated_at, created_at`
	row := r.db.Pool.QueryRow(ctx, q, chipUID, userID)
	ring, err := scanRing(row)
	if err == nil {
		return ring, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	// Upsert lost to an existing owner; read it back for the conflict detail.
	cur, err := r.Get(ctx, chipUID)
	if err != nil {
		return nil, err
	}
	if cur.OwnerUserID == nil {
		// released between upsert and read; caller may retry
		return nil, errs.ErrConflict
	}
	return nil, &errs.OwnershipConflict{ChipUID: chipUID, OwnerUserID: *cur.OwnerUserID}
}

// GetClaimedByOwner returns one ring claimed by the user, newest first.
func (r *RingRepo) GetClaimedByOwner(ctx context.Context, userID string) (*model.Ring, error) {
	const q = `
SELECT chip_uid, status, owner_user_id, ring_model, updated_at, created_at
FROM rings
WHERE owner_user_id=$1 AND status='claimed'
ORDER BY updated_at DESC
LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, userID)
	return scanRing(row)
}

// CreateClaimed inserts a freshly minted ring already bound to the user.
func (r *RingRepo) CreateClaimed(ctx context.Context, chipUID, userID string) error {
	const q = `
INSERT INTO rings (chip_uid, status, owner_user_id, updated_at)
VALUES ($1, 'claimed', $2, now())`
	_, err := r.db.Pool.Exec(ctx, q, chipUID, userID)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

func scanRing(row pgx.Row) (*model.Ring, error) {
	var ring model.Ring
	err := row.Scan(&ring.ChipUID, &ring.Status, &ring.OwnerUserID, &ring.RingModel, &ring.UpdatedAt, &ring.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &ring, nil
}
