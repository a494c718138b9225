package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/ratings"
	"github.com/tmuthoni/studyshelf/registry"
)

type fakeCatalog struct {
	studyshelf.CatalogService

	materials   []studyshelf.Material
	registerErr error
	registered  []string
}

func (f *fakeCatalog) ListMaterials(ctx context.Context, q studyshelf.PageQuery) (studyshelf.MaterialPage, error) {
	return studyshelf.MaterialPage{Items: f.materials, TotalItems: len(f.materials)}, nil
}

func (f *fakeCatalog) Register(ctx context.Context, id string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, id)
	return nil
}

func (f *fakeCatalog) ListRegisteredMaterialIDs(ctx context.Context, page, size int) ([]string, error) {
	return nil, nil
}

func (f *fakeCatalog) GetRatingStatistics(ctx context.Context, id string) (studyshelf.RatingStatistics, error) {
	return studyshelf.RatingStatistics{AverageRating: 4.2, TotalRatings: 7}, nil
}

type fakeGuardian struct {
	studyshelf.GuardianService

	students []studyshelf.Student
}

func (f *fakeGuardian) ListStudents(ctx context.Context) ([]studyshelf.Student, error) {
	return f.students, nil
}

type memStore struct {
	ids []string
}

func (m *memStore) SaveIDs(ctx context.Context, ids []string) error {
	m.ids = append([]string(nil), ids...)
	return nil
}

func (m *memStore) LoadIDs(ctx context.Context) ([]string, error) {
	return m.ids, nil
}

func newTestRouter(t *testing.T, catalog *fakeCatalog, guardian *fakeGuardian) (*httprouter.Router, *registry.Tracker) {
	t.Helper()

	tracker := registry.NewTracker(catalog, &memStore{}, 0)
	srv := NewServer(":0", catalog, guardian, tracker, ratings.NewAggregator(catalog))

	r := httprouter.New()
	r.GET("/materials", srv.listMaterialsHandler())
	r.GET("/materials/:id/statistics", srv.statisticsHandler())
	r.POST("/materials/:id/register", srv.registerHandler())
	r.GET("/students", srv.listStudentsHandler())
	return r, tracker
}

func TestListMaterialsHandler_AppliesFilters(t *testing.T) {
	catalog := &fakeCatalog{materials: []studyshelf.Material{
		{ID: "m1", Title: "Algebra", SubjectName: "Math"},
		{ID: "m2", Title: "Mechanics", SubjectName: "Physics"},
		{ID: "m3", Title: "Geometry", SubjectName: "Math"},
	}}
	router, _ := newTestRouter(t, catalog, &fakeGuardian{})

	req := httptest.NewRequest(http.MethodGet, "/materials?subject=math", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}

	var page studyshelf.MaterialPage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 math materials, got %d", len(page.Items))
	}
}

func TestRegisterHandler_HappyPath(t *testing.T) {
	catalog := &fakeCatalog{}
	router, tracker := newTestRouter(t, catalog, &fakeGuardian{})

	req := httptest.NewRequest(http.MethodPost, "/materials/m1/register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body)
	}
	if !tracker.IsRegistered("m1") {
		t.Fatal("m1 must be tracked after a successful registration")
	}
	if len(catalog.registered) != 1 {
		t.Fatalf("expected 1 register call, got %d", len(catalog.registered))
	}
}

func TestRegisterHandler_AlreadyRegisteredUpstream(t *testing.T) {
	catalog := &fakeCatalog{
		registerErr: &studyshelf.ServiceError{Status: 409, Code: studyshelf.CodeAlreadyRegistered, Message: "duplicate registration"},
	}
	router, tracker := newTestRouter(t, catalog, &fakeGuardian{})

	req := httptest.NewRequest(http.MethodPost, "/materials/m1/register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for the already-registered condition", rec.Code)
	}

	var resp registerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Registered || !resp.AlreadyRegistered {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !tracker.IsRegistered("m1") {
		t.Fatal("already-registered must still mark the material registered")
	}
}

func TestRegisterHandler_LocalShortcutSkipsUpstream(t *testing.T) {
	catalog := &fakeCatalog{}
	router, tracker := newTestRouter(t, catalog, &fakeGuardian{})
	tracker.MarkRegistered(context.Background(), "m1")

	req := httptest.NewRequest(http.MethodPost, "/materials/m1/register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(catalog.registered) != 0 {
		t.Fatal("locally known registration must not reach the catalog")
	}
}

func TestRegisterHandler_UpstreamFailure(t *testing.T) {
	catalog := &fakeCatalog{
		registerErr: &studyshelf.ServiceError{Status: 402, Code: 2001, Message: "payment required"},
	}
	router, tracker := newTestRouter(t, catalog, &fakeGuardian{})

	req := httptest.NewRequest(http.MethodPost, "/materials/m1/register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want upstream 402 passed through", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "payment required") {
		t.Fatalf("expected server message in body, got %s", rec.Body)
	}
	if tracker.IsRegistered("m1") {
		t.Fatal("failed registration must not be tracked")
	}
}

func TestStatisticsHandler(t *testing.T) {
	router, _ := newTestRouter(t, &fakeCatalog{}, &fakeGuardian{})

	req := httptest.NewRequest(http.MethodGet, "/materials/m1/statistics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var stats studyshelf.RatingStatistics
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.AverageRating != 4.2 || stats.TotalRatings != 7 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}

func TestListStudentsHandler_EmptyIsJSONArray(t *testing.T) {
	router, _ := newTestRouter(t, &fakeCatalog{}, &fakeGuardian{})

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}
