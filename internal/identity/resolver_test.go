package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/gmvsync/internal/logging"
	"github.com/JonMunkholm/gmvsync/internal/store"
	"github.com/JonMunkholm/gmvsync/internal/store/memstore"
)

// countingStore counts live identity lookups.
type countingStore struct {
	*memstore.Store
	finds int
}

func (c *countingStore) FindByIdentity(ctx context.Context, typ, identifier string) ([]int64, error) {
	c.finds++
	return c.Store.FindByIdentity(ctx, typ, identifier)
}

func setup(t *testing.T) (*countingStore, *Resolver) {
	t.Helper()
	s := &countingStore{Store: memstore.New()}
	return s, New(s, "gmv_id", "GMV-", logging.Discard())
}

func newContact(t *testing.T, s *countingStore) int64 {
	t.Helper()
	id, err := s.CreateContact(context.Background(), store.Fields{})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestWarmAndResolve(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()
	id := newContact(t, s)
	s.AddIdentity(ctx, id, "gmv_id", "GMV-100")
	s.AddIdentity(ctx, id, "gmv_id", "OTHER-5")

	n, err := r.Warm(ctx)
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Warm() = %d, want 1", n)
	}

	got, ok, err := r.Resolve(ctx, "100", false)
	if err != nil || !ok || got != id {
		t.Errorf("Resolve(100) = %d, %v, %v, want %d", got, ok, err, id)
	}
	if s.finds != 0 {
		t.Errorf("store lookups = %d, want 0 for cached id", s.finds)
	}
}

func TestResolveCacheOnly(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()
	id := newContact(t, s)
	s.AddIdentity(ctx, id, "gmv_id", "GMV-7")

	if _, ok, _ := r.Resolve(ctx, "7", true); ok {
		t.Error("cache only resolve hit the store")
	}
	if s.finds != 0 {
		t.Errorf("store lookups = %d, want 0", s.finds)
	}

	got, ok, err := r.Resolve(ctx, "7", false)
	if err != nil || !ok || got != id {
		t.Errorf("Resolve(7) = %d, %v, %v, want %d", got, ok, err, id)
	}
	if _, ok, _ := r.Resolve(ctx, "7", true); !ok {
		t.Error("live answer not cached")
	}
}

func TestMissIsCached(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()

	r.Resolve(ctx, "9", false)
	r.Resolve(ctx, "9", false)
	if s.finds != 1 {
		t.Errorf("store lookups = %d, want 1", s.finds)
	}
}

func TestRegister(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()
	id := newContact(t, s)

	r.Resolve(ctx, "55", false)
	if err := r.Register(ctx, id, "55"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	finds := s.finds

	got, ok, _ := r.Resolve(ctx, "55", false)
	if !ok || got != id {
		t.Errorf("Resolve(55) = %d, %v, want %d", got, ok, id)
	}
	if s.finds != finds {
		t.Error("registered id was looked up in the store")
	}

	ids, _ := s.FindByIdentity(ctx, "gmv_id", "GMV-55")
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("tracked identities = %v, want [%d]", ids, id)
	}

	other := newContact(t, s)
	if err := r.Register(ctx, other, "55"); !errors.Is(err, store.ErrAmbiguous) {
		t.Errorf("second Register() error = %v, want ErrAmbiguous", err)
	}
}

func TestAmbiguous(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()
	a, b := newContact(t, s), newContact(t, s)
	s.AddIdentity(ctx, a, "gmv_id", "GMV-1")
	s.AddIdentity(ctx, b, "gmv_id", "GMV-1")
	s.AddIdentity(ctx, a, "gmv_id", "GMV-2")
	s.AddIdentity(ctx, b, "gmv_id", "GMV-2")

	if _, err := r.Warm(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := r.Resolve(ctx, "1", false); ok || !errors.Is(err, store.ErrAmbiguous) {
		t.Errorf("Resolve(1) = %v, %v, want ErrAmbiguous", ok, err)
	}

	fresh := New(s, "gmv_id", "GMV-", logging.Discard())
	if _, _, err := fresh.Resolve(ctx, "2", false); !errors.Is(err, store.ErrAmbiguous) {
		t.Errorf("live Resolve(2) error = %v, want ErrAmbiguous", err)
	}
}

func TestEmptyID(t *testing.T) {
	s, r := setup(t)
	if _, ok, err := r.Resolve(context.Background(), "", false); ok || err != nil {
		t.Errorf("Resolve(\"\") = %v, %v", ok, err)
	}
	if s.finds != 0 {
		t.Error("empty id looked up")
	}
}
