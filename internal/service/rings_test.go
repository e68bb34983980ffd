package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/deeplink"
	"github.com/ringtap/ringtap/internal/errs"
	"github.com/ringtap/ringtap/internal/model"
	"github.com/ringtap/ringtap/internal/repository"
)

// fakeRingRepo is a map-backed store implementing the same upsert semantics
// as the Postgres repository, so claim races can be simulated in-process.
type fakeRingRepo struct {
	mu    sync.Mutex
	rings map[string]*model.Ring

	afterGet func() // runs after Get returns; used to interleave a rival claim
}

var _ repository.RingRepository = (*fakeRingRepo)(nil)

func newFakeRingRepo() *fakeRingRepo {
	return &fakeRingRepo{rings: map[string]*model.Ring{}}
}

func (f *fakeRingRepo) EnsureExists(_ context.Context, chipUID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rings[chipUID]; !ok {
		f.rings[chipUID] = &model.Ring{ChipUID: chipUID, Status: model.StatusUnclaimed}
	}
	return nil
}

func (f *fakeRingRepo) Get(_ context.Context, chipUID string) (*model.Ring, error) {
	f.mu.Lock()
	r, ok := f.rings[chipUID]
	var cp model.Ring
	if ok {
		cp = *r
	}
	f.mu.Unlock()
	if f.afterGet != nil {
		f.afterGet()
	}
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &cp, nil
}

func (f *fakeRingRepo) Claim(_ context.Context, chipUID, userID string) (*model.Ring, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rings[chipUID]
	if !ok {
		r = &model.Ring{ChipUID: chipUID}
		f.rings[chipUID] = r
	}
	if r.OwnerUserID != nil && *r.OwnerUserID != userID {
		return nil, &errs.OwnershipConflict{ChipUID: chipUID, OwnerUserID: *r.OwnerUserID}
	}
	owner := userID
	r.Status = model.StatusClaimed
	r.OwnerUserID = &owner
	cp := *r
	return &cp, nil
}

func (f *fakeRingRepo) GetClaimedByOwner(_ context.Context, userID string) (*model.Ring, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rings {
		if r.OwnerUserID != nil && *r.OwnerUserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeRingRepo) CreateClaimed(_ context.Context, chipUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rings[chipUID]; ok {
		return errs.ErrConflict
	}
	owner := userID
	f.rings[chipUID] = &model.Ring{ChipUID: chipUID, Status: model.StatusClaimed, OwnerUserID: &owner}
	return nil
}

type fakeCatalog struct {
	models map[string]model.RingModel
	err    error
	calls  int
}

func (f *fakeCatalog) Lookup(_ context.Context, id string) (*model.RingModel, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.models[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &m, nil
}

func newService(repo *fakeRingRepo, cat ModelCatalog) *RingServiceImpl {
	return NewRingService(repo, cat, "ringtap", "classic-silver", zap.NewNop())
}

func TestRingService_BlankInputs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, input := range []string{"", "   ", "\t\n"} {
		repo := newFakeRingRepo()
		s := newService(repo, &fakeCatalog{})

		if _, err := s.Activate(ctx, input); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("Activate(%q): want validation error, got %v", input, err)
		}
		if err := s.ClaimByUID(ctx, input, "u1"); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("ClaimByUID blank uid: got %v", err)
		}
		if err := s.ClaimByUID(ctx, "CHIP", input); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("ClaimByUID blank user: got %v", err)
		}
		if _, _, err := s.ClaimOrCreateForUser(ctx, input); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("ClaimOrCreateForUser blank user: got %v", err)
		}
		if _, err := s.ClaimForSetup(ctx, input, "u1"); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("ClaimForSetup blank setup: got %v", err)
		}
		if _, err := s.Status(ctx, input, true); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("Status blank uid: got %v", err)
		}

		if len(repo.rings) != 0 {
			t.Fatalf("blank input must not mutate the store, have %d rows", len(repo.rings))
		}
	}
}

func TestRingService_Activate_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	first, err := s.Activate(ctx, "CHIP-1")
	if err != nil {
		t.Fatalf("first activate: %v", err)
	}
	second, err := s.Activate(ctx, "CHIP-1")
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if first != second {
		t.Fatalf("deep links differ: %q vs %q", first, second)
	}
	if !strings.HasPrefix(first, "ringtap://activate?r=") {
		t.Fatalf("unexpected deep link %q", first)
	}
	if len(repo.rings) != 1 {
		t.Fatalf("want exactly one row, got %d", len(repo.rings))
	}
	if repo.rings["CHIP-1"].Status != model.StatusUnclaimed {
		t.Fatalf("activation must not claim")
	}
}

func TestRingService_Activate_LinkRoundTripsThroughRouter(t *testing.T) {
	t.Parallel()
	s := newService(newFakeRingRepo(), &fakeCatalog{})

	link, err := s.Activate(context.Background(), "CHIP 1")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	got := deeplink.Parse(link)
	want := deeplink.RingActivate{RingID: "CHIP 1"}
	if got != want {
		t.Fatalf("activate link parsed as %#v, want %#v", got, want)
	}
}

func TestRingService_Activate_EscapesID(t *testing.T) {
	t.Parallel()
	s := newService(newFakeRingRepo(), &fakeCatalog{})

	link, err := s.Activate(context.Background(), "A B&C")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if strings.ContainsAny(link[len("ringtap://activate?r="):], " &") {
		t.Fatalf("id not escaped in %q", link)
	}
}

func TestRingService_ClaimByUID_IdempotentForOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	if err := s.ClaimByUID(ctx, "CHIP-1", "alice"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := s.ClaimByUID(ctx, "CHIP-1", "alice"); err != nil {
		t.Fatalf("repeat claim by owner: %v", err)
	}
	if got := *repo.rings["CHIP-1"].OwnerUserID; got != "alice" {
		t.Fatalf("owner changed to %q", got)
	}
}

func TestRingService_ClaimByUID_ConflictKeepsOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	if err := s.ClaimByUID(ctx, "CHIP-1", "alice"); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	err := s.ClaimByUID(ctx, "CHIP-1", "bob")
	var conflict *errs.OwnershipConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("want ownership conflict, got %v", err)
	}
	if conflict.OwnerUserID != "alice" {
		t.Fatalf("conflict owner = %q", conflict.OwnerUserID)
	}
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("conflict must match ErrConflict")
	}
	if got := *repo.rings["CHIP-1"].OwnerUserID; got != "alice" {
		t.Fatalf("owner mutated to %q", got)
	}
}

// The pre-claim read says unclaimed, then a rival claim lands before the
// upsert. The upsert's conflict resolution, not the read, must decide the
// winner: exactly one owner, loser gets the conflict.
func TestRingService_ClaimByUID_RaceLoserGetsConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	interleaved := false
	repo.afterGet = func() {
		if !interleaved {
			interleaved = true
			if _, err := repo.Claim(ctx, "CHIP-1", "bob"); err != nil {
				t.Errorf("rival claim: %v", err)
			}
		}
	}

	err := s.ClaimByUID(ctx, "CHIP-1", "alice")
	var conflict *errs.OwnershipConflict
	if !errors.As(err, &conflict) || conflict.OwnerUserID != "bob" {
		t.Fatalf("want conflict against bob, got %v", err)
	}
	if got := *repo.rings["CHIP-1"].OwnerUserID; got != "bob" {
		t.Fatalf("winner = %q, want bob", got)
	}
}

func TestRingService_ClaimOrCreate_ReturnsExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	if err := s.ClaimByUID(ctx, "CHIP-1", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	chipUID, alreadyLinked, err := s.ClaimOrCreateForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("claim-or-create: %v", err)
	}
	if !alreadyLinked || chipUID != "CHIP-1" {
		t.Fatalf("want existing CHIP-1 linked, got %q linked=%v", chipUID, alreadyLinked)
	}
	if len(repo.rings) != 1 {
		t.Fatalf("must not mint a second ring")
	}
}

func TestRingService_ClaimOrCreate_MintsFresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	chipUID, alreadyLinked, err := s.ClaimOrCreateForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("claim-or-create: %v", err)
	}
	if alreadyLinked {
		t.Fatalf("fresh ring reported as already linked")
	}
	if chipUID == "" {
		t.Fatalf("empty minted uid")
	}
	r := repo.rings[chipUID]
	if r == nil || !r.OwnedBy("alice") {
		t.Fatalf("minted ring not claimed by alice: %+v", r)
	}
}

func TestRingService_ClaimForSetup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	linked, err := s.ClaimForSetup(ctx, "SETUP-1", "alice")
	if err != nil || linked {
		t.Fatalf("fresh setup claim: linked=%v err=%v", linked, err)
	}

	linked, err = s.ClaimForSetup(ctx, "SETUP-1", "alice")
	if err != nil || !linked {
		t.Fatalf("repeat setup claim by owner: linked=%v err=%v", linked, err)
	}

	_, err = s.ClaimForSetup(ctx, "SETUP-1", "bob")
	var conflict *errs.OwnershipConflict
	if !errors.As(err, &conflict) || conflict.OwnerUserID != "alice" {
		t.Fatalf("want conflict against alice, got %v", err)
	}
}

func TestRingService_Status_ElevatedPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	cat := &fakeCatalog{models: map[string]model.RingModel{
		"classic-silver": {ID: "classic-silver", ModelURL: "https://assets/x.glb"},
	}}
	s := newService(repo, cat)

	info, err := s.Status(ctx, "NEW-CHIP", true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Status != model.StatusUnclaimed || info.RingModel != "classic-silver" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.ModelURL == nil || *info.ModelURL != "https://assets/x.glb" {
		t.Fatalf("model url not joined: %+v", info.ModelURL)
	}
	if _, ok := repo.rings["NEW-CHIP"]; !ok {
		t.Fatalf("elevated status must persist the row")
	}
}

func TestRingService_Status_PublicDoesNotPersist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	s := newService(repo, &fakeCatalog{})

	info, err := s.Status(ctx, "NEW-CHIP", false)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if info.Status != model.StatusUnclaimed || info.ChipUID != "NEW-CHIP" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.RingModel != "classic-silver" {
		t.Fatalf("want default model, got %q", info.RingModel)
	}
	if len(repo.rings) != 0 {
		t.Fatalf("public status must not persist")
	}
}

func TestRingService_Status_DegradesOnCatalogFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRingRepo()
	cat := &fakeCatalog{err: errs.ErrUpstream}
	s := newService(repo, cat)

	if err := s.ClaimByUID(ctx, "CHIP-1", "alice"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	info, err := s.Status(ctx, "CHIP-1", false)
	if err != nil {
		t.Fatalf("status must not fail on catalog errors: %v", err)
	}
	if info.ModelURL != nil {
		t.Fatalf("want nil model url on upstream failure")
	}
	if info.OwnerUserID == nil || *info.OwnerUserID != "alice" {
		t.Fatalf("owner missing from status: %+v", info)
	}
}
