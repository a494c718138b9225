package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/ratings"
	"github.com/tmuthoni/studyshelf/registry"
)

// Server is the thin HTTP gateway the UI front end talks to. It exposes the
// catalog, filtering, rating and registration operations as JSON endpoints.
type Server struct {
	catalog    studyshelf.CatalogService
	guardian   studyshelf.GuardianService
	tracker    *registry.Tracker
	aggregator ratings.Aggregator
	addr       string
}

func NewServer(addr string, c studyshelf.CatalogService, g studyshelf.GuardianService, t *registry.Tracker, a ratings.Aggregator) Server {
	return Server{c, g, t, a, addr}
}

func (s Server) Start(ctx context.Context) error {
	r := httprouter.New()

	// register routes
	r.GET("/ping", s.pingHandler())
	r.GET("/materials", s.listMaterialsHandler())
	r.GET("/materials/:id/statistics", s.statisticsHandler())
	r.GET("/materials/:id/ratings", s.listRatingsHandler())
	r.POST("/materials/:id/register", s.registerHandler())
	r.POST("/ratings", s.createRatingHandler())
	r.POST("/students/link", s.linkStudentHandler())
	r.GET("/students", s.listStudentsHandler())
	r.GET("/students/:id/exam-results", s.examResultsHandler())

	srv := http.Server{Addr: s.addr, Handler: r}
	log.Printf("listening on %s", s.addr)

	// start server, respecting context cancelation
	errChan := make(chan error)
	go func() { errChan <- srv.ListenAndServe() }()
	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Println("gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Println("server shutdown complete")
	}

	return nil
}

func (s Server) pingHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Error writing ping response: %s", err)
		}
	}
}
