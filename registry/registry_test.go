package registry

import (
	"context"
	"errors"
	"testing"

	studyshelf "github.com/tmuthoni/studyshelf"
)

type fakeCatalog struct {
	studyshelf.CatalogService

	ids []string
	err error
}

func (f *fakeCatalog) ListRegisteredMaterialIDs(ctx context.Context, page, size int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

type memStore struct {
	ids     []string
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) SaveIDs(ctx context.Context, ids []string) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ids = append([]string(nil), ids...)
	return nil
}

func (m *memStore) LoadIDs(ctx context.Context) ([]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.ids, nil
}

func TestLoad_ReplacesSetAndPersists(t *testing.T) {
	catalog := &fakeCatalog{ids: []string{"m1", "m2"}}
	store := &memStore{}
	tracker := NewTracker(catalog, store, 0)

	if err := tracker.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !tracker.IsRegistered("m1") || !tracker.IsRegistered("m2") {
		t.Fatal("expected m1 and m2 registered after load")
	}
	if tracker.IsRegistered("m3") {
		t.Fatal("m3 must not be registered")
	}
	if store.saves != 1 {
		t.Fatalf("expected 1 mirror persist, got %d", store.saves)
	}
	if len(store.ids) != 2 {
		t.Fatalf("mirror holds %v", store.ids)
	}
}

func TestLoad_PrunesStaleMirrorEntries(t *testing.T) {
	catalog := &fakeCatalog{ids: []string{"m2"}}
	store := &memStore{ids: []string{"m1", "m2"}}
	tracker := NewTracker(catalog, store, 0)

	if err := tracker.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if tracker.IsRegistered("m1") {
		t.Fatal("stale m1 should be gone after an authoritative load")
	}
	if len(store.ids) != 1 || store.ids[0] != "m2" {
		t.Fatalf("mirror not pruned: %v", store.ids)
	}
}

func TestLoad_FallsBackToMirror(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("catalog unreachable")}
	store := &memStore{ids: []string{"m7"}}
	tracker := NewTracker(catalog, store, 0)

	if err := tracker.Load(context.Background()); err != nil {
		t.Fatalf("fallback load should not error: %v", err)
	}

	if !tracker.IsRegistered("m7") {
		t.Fatal("expected m7 from the persisted mirror")
	}
}

func TestLoad_EmptyWhenEverythingFails(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("catalog unreachable")}
	store := &memStore{loadErr: errors.New("disk gone")}
	tracker := NewTracker(catalog, store, 0)

	if err := tracker.Load(context.Background()); err == nil {
		t.Fatal("expected an error when both sources fail")
	}

	if got := tracker.IDs(); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestMarkRegistered_VisibleImmediatelyAndAcrossReload(t *testing.T) {
	catalog := &fakeCatalog{ids: []string{}}
	store := &memStore{}
	tracker := NewTracker(catalog, store, 0)

	if err := tracker.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tracker.MarkRegistered(context.Background(), "m1")
	if !tracker.IsRegistered("m1") {
		t.Fatal("IsRegistered must be true immediately after MarkRegistered")
	}

	// simulate an app restart where the catalog has become unreachable
	catalog.err = errors.New("catalog unreachable")
	reloaded := NewTracker(catalog, store, 0)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("fallback load: %v", err)
	}

	if !reloaded.IsRegistered("m1") {
		t.Fatal("m1 must survive a reload through the persisted mirror")
	}
}

func TestMarkRegistered_PersistFailureIsSwallowed(t *testing.T) {
	catalog := &fakeCatalog{}
	store := &memStore{saveErr: errors.New("disk full")}
	tracker := NewTracker(catalog, store, 0)

	tracker.MarkRegistered(context.Background(), "m1")

	if !tracker.IsRegistered("m1") {
		t.Fatal("in-memory set must be updated even when the mirror write fails")
	}
}
