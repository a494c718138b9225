package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/ratings"
	"github.com/tmuthoni/studyshelf/registry"
)

// State of the registration workflow.
type State int

const (
	Browsing State = iota
	DetailOpen
	ConfirmPending
	Registering
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case DetailOpen:
		return "detail-open"
	case ConfirmPending:
		return "confirm-pending"
	case Registering:
		return "registering"
	}
	return "unknown"
}

// Events receives the UI side effects of the workflow. Implementations close
// modals, navigate to the material's content destination, and show the
// recoverable error notice with its retry affordance.
type Events interface {
	CloseModals()
	Navigate(material studyshelf.Material)
	Notice(message string)
}

// NopEvents discards all events.
type NopEvents struct{}

func (NopEvents) CloseModals() {}

func (NopEvents) Navigate(studyshelf.Material) {}

func (NopEvents) Notice(string) {}

const genericRegisterFailure = "Registration failed, please try again"

// Workflow drives the select / confirm / register sequence for one user
// session. Transitions are strictly sequential; at most one registration
// request is in flight at any time.
type Workflow struct {
	catalog    studyshelf.CatalogService
	tracker    *registry.Tracker
	aggregator ratings.Aggregator
	events     Events

	mu       sync.Mutex
	state    State
	selected studyshelf.Material
	stats    studyshelf.RatingStatistics
	hasStats bool
}

func New(catalog studyshelf.CatalogService, tracker *registry.Tracker, aggregator ratings.Aggregator, events Events) *Workflow {
	if events == nil {
		events = NopEvents{}
	}

	return &Workflow{
		catalog:    catalog,
		tracker:    tracker,
		aggregator: aggregator,
		events:     events,
	}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Selected returns the material whose detail view is open, if any.
func (w *Workflow) Selected() (studyshelf.Material, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected, w.state != Browsing
}

// Statistics returns the loaded rating statistics for the selected material.
// The second return is false while the load has not completed; the detail
// view renders without statistics in that case.
func (w *Workflow) Statistics() (studyshelf.RatingStatistics, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats, w.hasStats
}

// Select opens the detail view for a material and kicks off the statistics
// load without blocking the transition.
func (w *Workflow) Select(ctx context.Context, material studyshelf.Material) {
	w.mu.Lock()
	if w.state != Browsing {
		w.mu.Unlock()
		return
	}
	w.state = DetailOpen
	w.selected = material
	w.stats = studyshelf.RatingStatistics{}
	w.hasStats = false
	w.mu.Unlock()

	go w.loadStatistics(ctx, material.ID)
}

func (w *Workflow) loadStatistics(ctx context.Context, materialID string) {
	stats := w.aggregator.LoadStatistics(ctx, materialID)

	w.mu.Lock()
	defer w.mu.Unlock()
	// the detail view may have been closed or reopened for another material
	if w.state == Browsing || w.selected.ID != materialID {
		return
	}
	w.stats = stats
	w.hasStats = true
}

// RequestEnrollment moves to the confirmation step, or short-circuits straight
// to the navigation outcome when the material is already registered. The
// shortcut is deliberate: no confirmation and no server call for a
// registration that already exists.
func (w *Workflow) RequestEnrollment() {
	w.mu.Lock()
	if w.state != DetailOpen {
		w.mu.Unlock()
		return
	}

	material := w.selected
	if w.tracker.IsRegistered(material.ID) {
		w.resetLocked()
		w.mu.Unlock()
		w.complete(material)
		return
	}

	w.state = ConfirmPending
	w.mu.Unlock()
}

// Confirm performs the registration request. A Confirm while a request is in
// flight is a no-op, so exactly one request reaches the catalog no matter how
// often the action is triggered.
func (w *Workflow) Confirm(ctx context.Context) {
	w.mu.Lock()
	if w.state != ConfirmPending {
		w.mu.Unlock()
		return
	}
	w.state = Registering
	material := w.selected
	w.mu.Unlock()

	err := w.catalog.Register(ctx, material.ID)
	if err != nil && !studyshelf.IsAlreadyRegistered(err) {
		w.fail(err)
		return
	}

	if studyshelf.IsAlreadyRegistered(err) {
		log.Info().Str("material", material.ID).Msg("registration already exists, treating as success")
	}

	w.tracker.MarkRegistered(ctx, material.ID)

	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()

	w.complete(material)
}

// Cancel closes the detail or confirmation view and clears all per-material
// transient state. It is a no-op while a registration request is in flight.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != DetailOpen && w.state != ConfirmPending {
		return
	}
	w.resetLocked()
}

func (w *Workflow) complete(material studyshelf.Material) {
	w.events.CloseModals()
	w.events.Navigate(material)
}

func (w *Workflow) fail(err error) {
	message := genericRegisterFailure
	var svcErr *studyshelf.ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		message = svcErr.Message
	}

	log.Error().Err(err).Msg("registration failed")

	w.mu.Lock()
	w.state = DetailOpen
	w.mu.Unlock()

	w.events.CloseModals()
	w.events.Notice(message)
}

// resetLocked clears the per-material transient state. Callers hold w.mu.
func (w *Workflow) resetLocked() {
	w.state = Browsing
	w.selected = studyshelf.Material{}
	w.stats = studyshelf.RatingStatistics{}
	w.hasStats = false
}
