// Package service contains the application service owning the ring lifecycle
// state machine: unclaimed -> claimed, with first-touch auto-creation.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/errs"
	"github.com/ringtap/ringtap/internal/model"
	"github.com/ringtap/ringtap/internal/repository"
)

// ModelCatalog resolves ring model ids to reference rows.
type ModelCatalog interface {
	Lookup(ctx context.Context, id string) (*model.RingModel, error)
}

// RingService defines the ring lifecycle operations.
type RingService interface {
	// Activate ensures a ring row exists for the physical id and returns the
	// app deep link embedding it. Never fails for an already-claimed ring.
	Activate(ctx context.Context, ringID string) (deepLink string, err error)

	// ClaimByUID binds the ring to userID. Idempotent for the current owner;
	// *errs.OwnershipConflict if a different account holds it.
	ClaimByUID(ctx context.Context, uid, userID string) error

	// ClaimOrCreateForUser returns the user's claimed ring, minting and
	// claiming a fresh one when none exists.
	ClaimOrCreateForUser(ctx context.Context, userID string) (chipUID string, alreadyLinked bool, err error)

	// ClaimForSetup claims a ring by its printed setup id (same keyspace as
	// chip uids). alreadyLinked is true when the caller already owns it.
	ClaimForSetup(ctx context.Context, setupID, userID string) (alreadyLinked bool, err error)

	// Status returns the current binding joined against the model catalog.
	// Elevated callers trigger first-touch auto-creation of unknown rings.
	Status(ctx context.Context, uid string, elevated bool) (model.RingStatusInfo, error)
}

type RingServiceImpl struct {
	rings        repository.RingRepository
	catalog      ModelCatalog
	scheme       string // deep link URL scheme
	defaultModel string
	log          *zap.Logger
}

// NewRingService constructs RingService with required dependencies.
func NewRingService(rings repository.RingRepository, catalog ModelCatalog, scheme, defaultModel string, log *zap.Logger) *RingServiceImpl {
	if scheme == "" {
		scheme = "ringtap"
	}
	return &RingServiceImpl{rings: rings, catalog: catalog, scheme: scheme, defaultModel: defaultModel, log: log}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Activate is read-or-create: a duplicate first touch converges on one row
// and the deep link is returned regardless of claim state.
func (s *RingServiceImpl) Activate(ctx context.Context, ringID string) (string, error) {
	if blank(ringID) {
		return "", errs.Validation("empty ring id")
	}
	if err := s.rings.EnsureExists(ctx, ringID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://activate?r=%s", s.scheme, url.QueryEscape(ringID)), nil
}

// ClaimByUID claims the ring for userID. The preceding read exists only to
// produce a better conflict message; the repository's conditional upsert is
// what actually decides who wins a race.
func (s *RingServiceImpl) ClaimByUID(ctx context.Context, uid, userID string) error {
	if blank(uid) || blank(userID) {
		return errs.Validation("empty uid/user_id")
	}
	if cur, err := s.rings.Get(ctx, uid); err == nil {
		if cur.Claimed() && !cur.OwnedBy(userID) {
			return &errs.OwnershipConflict{ChipUID: uid, OwnerUserID: *cur.OwnerUserID}
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	_, err := s.rings.Claim(ctx, uid, userID)
	return err
}

// ClaimOrCreateForUser enforces "at most one claimed ring per user" as a
// best-effort policy: concurrent calls for the same user can still create two
// claimed rings, which is accepted (no uniqueness constraint on owner).
func (s *RingServiceImpl) ClaimOrCreateForUser(ctx context.Context, userID string) (string, bool, error) {
	if blank(userID) {
		return "", false, errs.Validation("empty user_id")
	}

	existing, err := s.rings.GetClaimedByOwner(ctx, userID)
	switch {
	case err == nil:
		return existing.ChipUID, true, nil
	case errors.Is(err, errs.ErrNotFound):
		// fall through to mint
	default:
		return "", false, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", false, err
	}
	chipUID := id.String()
	if err := s.rings.CreateClaimed(ctx, chipUID, userID); err != nil {
		return "", false, err
	}
	return chipUID, false, nil
}

// ClaimForSetup shares chip uid keyspace and conflict policy with ClaimByUID.
func (s *RingServiceImpl) ClaimForSetup(ctx context.Context, setupID, userID string) (bool, error) {
	if blank(setupID) || blank(userID) {
		return false, errs.Validation("empty setup_id/user_id")
	}
	if cur, err := s.rings.Get(ctx, setupID); err == nil {
		if cur.OwnedBy(userID) {
			return true, nil
		}
		if cur.Claimed() {
			return false, &errs.OwnershipConflict{ChipUID: setupID, OwnerUserID: *cur.OwnerUserID}
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return false, err
	}
	if _, err := s.rings.Claim(ctx, setupID, userID); err != nil {
		return false, err
	}
	return false, nil
}

// Status reads the current binding. Elevated (service-level) callers mirror
// Activate's first-touch behavior; everyone else gets unclaimed defaults for
// unknown uids without persisting anything.
func (s *RingServiceImpl) Status(ctx context.Context, uid string, elevated bool) (model.RingStatusInfo, error) {
	if blank(uid) {
		return model.RingStatusInfo{}, errs.Validation("empty uid")
	}

	if elevated {
		if err := s.rings.EnsureExists(ctx, uid); err != nil {
			return model.RingStatusInfo{}, err
		}
	}

	ring, err := s.rings.Get(ctx, uid)
	if errors.Is(err, errs.ErrNotFound) {
		return model.RingStatusInfo{
			ChipUID:   uid,
			Status:    model.StatusUnclaimed,
			RingModel: s.defaultModel,
			ModelURL:  s.modelURL(ctx, s.defaultModel),
		}, nil
	}
	if err != nil {
		return model.RingStatusInfo{}, err
	}

	modelID := ring.RingModel
	if modelID == "" {
		modelID = s.defaultModel
	}
	return model.RingStatusInfo{
		ChipUID:     ring.ChipUID,
		Status:      ring.Status,
		RingModel:   modelID,
		ModelURL:    s.modelURL(ctx, modelID),
		OwnerUserID: ring.OwnerUserID,
	}, nil
}

// modelURL degrades to nil on catalog misses and upstream failures; the model
// asset is enrichment, never a reason to fail a status read.
func (s *RingServiceImpl) modelURL(ctx context.Context, modelID string) *string {
	if s.catalog == nil || modelID == "" {
		return nil
	}
	m, err := s.catalog.Lookup(ctx, modelID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			s.log.Warn("model lookup failed", zap.String("model", modelID), zap.Error(err))
		}
		return nil
	}
	return &m.ModelURL
}
