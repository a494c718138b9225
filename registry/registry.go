package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	studyshelf "github.com/tmuthoni/studyshelf"
)

// Tracker maintains the set of material ids the current user is registered
// for. The remote catalog is the source of truth; the store is a best-effort
// mirror consulted only when the catalog cannot be reached. Staleness after a
// fallback load is expected and acceptable.
type Tracker struct {
	catalog studyshelf.CatalogService
	store   studyshelf.RegistrationStore

	// first page fetched from the authoritative endpoint
	pageSize int

	mu  sync.Mutex
	ids map[string]struct{}
}

func NewTracker(catalog studyshelf.CatalogService, store studyshelf.RegistrationStore, pageSize int) *Tracker {
	if pageSize <= 0 {
		pageSize = 200
	}

	return &Tracker{
		catalog:  catalog,
		store:    store,
		pageSize: pageSize,
		ids:      make(map[string]struct{}),
	}
}

// Load replaces the in-memory set with the authoritative list from the
// catalog and mirrors it to the store. When the catalog is unreachable it
// falls back to the last persisted mirror; when that also fails the set stays
// empty. Load never returns an error for the fallback path itself.
func (t *Tracker) Load(ctx context.Context) error {
	ids, err := t.catalog.ListRegisteredMaterialIDs(ctx, 0, t.pageSize)
	if err != nil {
		log.Warn().Err(err).Msg("registered-materials fetch failed, falling back to local mirror")

		stored, storeErr := t.store.LoadIDs(ctx)
		if storeErr != nil {
			log.Warn().Err(storeErr).Msg("local registration mirror unavailable, starting empty")
			return fmt.Errorf("failed to load registered materials: %w", err)
		}

		t.replace(stored)
		return nil
	}

	t.replace(ids)
	t.persist(ctx)
	return nil
}

func (t *Tracker) IsRegistered(materialID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.ids[materialID]
	return ok
}

// MarkRegistered records a server-confirmed registration and persists the
// updated set. Persistence failure is logged, never surfaced; membership must
// only grow via confirmed server acknowledgment, so callers invoke this only
// after a success or already-registered response.
func (t *Tracker) MarkRegistered(ctx context.Context, materialID string) {
	t.mu.Lock()
	t.ids[materialID] = struct{}{}
	t.mu.Unlock()

	t.persist(ctx)
}

// IDs returns a sorted snapshot of the registered material ids.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.ids))
	for id := range t.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Tracker) replace(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}

	t.mu.Lock()
	t.ids = set
	t.mu.Unlock()
}

func (t *Tracker) persist(ctx context.Context) {
	if err := t.store.SaveIDs(ctx, t.IDs()); err != nil {
		log.Warn().Err(err).Msg("failed to persist registration mirror")
	}
}
