// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/ringtap/ringtap/internal/model"
)

// RingRepository provides access to ring records keyed by chip uid.
//
// All writes are expressed as upserts on the chip_uid unique key; the store's
// conflict resolution, not the caller's preceding read, decides who wins when
// two writes race on the same uid.
type RingRepository interface {
	// EnsureExists inserts an unclaimed ring if none exists. A concurrent
	// first-touch insert of the same uid is not an error.
	EnsureExists(ctx context.Context, chipUID string) error

	// Get loads a ring by chip uid. Returns errs.ErrNotFound if absent.
	Get(ctx context.Context, chipUID string) (*model.Ring, error)

	// Claim binds the ring to userID via a conditional upsert: it creates the
	// ring claimed if absent, takes ownership if unclaimed, and no-ops
	// idempotently if already owned by userID. If the ring is owned by a
	// different user it returns *errs.OwnershipConflict.
	Claim(ctx context.Context, chipUID, userID string) (*model.Ring, error)

	// GetClaimedByOwner returns a ring currently claimed by the given user,
	// or errs.ErrNotFound if the user owns none.
	GetClaimedByOwner(ctx context.Context, userID string) (*model.Ring, error)

	// CreateClaimed inserts a brand-new ring already bound to userID.
	CreateClaimed(ctx context.Context, chipUID, userID string) error
}

// ModelRepository provides read-only access to ring model reference data.
type ModelRepository interface {
	// GetModel loads one catalog row by model id. Returns errs.ErrNotFound
	// if the id has no matching row.
	GetModel(ctx context.Context, id string) (*model.RingModel, error)
}
