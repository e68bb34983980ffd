// Package model defines domain entities used by services and repositories.
package model

import "time"

// RingStatus is the lifecycle state of a physical ring.
type RingStatus string

const (
	// StatusUnclaimed means the ring exists but is not bound to an account.
	StatusUnclaimed RingStatus = "unclaimed"
	// StatusClaimed means the ring is bound to exactly one account.
	StatusClaimed RingStatus = "claimed"
)

// Ring is one physical NFC tag or printed QR code, keyed by the identifier
// burned onto the item. Rows are append/update only; a ring is never deleted
// and never returns to unclaimed once claimed.
type Ring struct {
	ChipUID     string     // immutable natural key
	Status      RingStatus // claimed iff OwnerUserID != nil
	OwnerUserID *string    // set iff Status == StatusClaimed
	RingModel   string     // cosmetic model id, may be empty
	UpdatedAt   time.Time
	CreatedAt   time.Time
}

// Claimed reports whether the ring is bound to an owner.
func (r *Ring) Claimed() bool { return r.Status == StatusClaimed && r.OwnerUserID != nil }

// OwnedBy reports whether the ring is claimed by the given user.
func (r *Ring) OwnedBy(userID string) bool {
	return r.Claimed() && *r.OwnerUserID == userID
}

// RingModel is reference data describing a cosmetic ring model.
// Read-only from this service's perspective.
type RingModel struct {
	ID           string
	Name         string
	ModelURL     string // 3D asset
	ThumbnailURL string
}

// RingStatusInfo is the display view returned by status lookups: the current
// binding joined against the model catalog.
type RingStatusInfo struct {
	ChipUID     string
	Status      RingStatus
	RingModel   string  // defaulted when the ring has no model set
	ModelURL    *string // nil when the catalog has no matching row
	OwnerUserID *string
}
