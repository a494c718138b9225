package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/filter"
)

func (s Server) listMaterialsHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		q := r.URL.Query()

		query := studyshelf.PageQuery{}
		if page, err := strconv.Atoi(q.Get("page")); err == nil {
			query.Page = page
		}
		if size, err := strconv.Atoi(q.Get("size")); err == nil {
			query.Size = size
		}

		result, err := s.catalog.ListMaterials(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}

		criteria := filter.Criteria{
			Search:  q.Get("search"),
			Subject: q.Get("subject"),
			Teacher: q.Get("teacher"),
		}
		result.Items = filter.Apply(result.Items, criteria)

		writeJSON(w, http.StatusOK, result)
	}
}

func (s Server) statisticsHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		// statistics are supplementary, the aggregator swallows load failures
		stats := s.aggregator.LoadStatistics(r.Context(), p.ByName("id"))
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s Server) listRatingsHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		list, err := s.aggregator.LoadList(r.Context(), p.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []studyshelf.Rating{}
		}

		writeJSON(w, http.StatusOK, list)
	}
}

type registerResponse struct {
	MaterialID        string `json:"materialId"`
	Registered        bool   `json:"registered"`
	AlreadyRegistered bool   `json:"alreadyRegistered"`
}

func (s Server) registerHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id := p.ByName("id")

		// a registration that already exists locally needs no server call
		if s.tracker.IsRegistered(id) {
			writeJSON(w, http.StatusOK, registerResponse{MaterialID: id, Registered: true, AlreadyRegistered: true})
			return
		}

		err := s.catalog.Register(r.Context(), id)
		if err != nil && !studyshelf.IsAlreadyRegistered(err) {
			writeError(w, err)
			return
		}

		s.tracker.MarkRegistered(r.Context(), id)

		if studyshelf.IsAlreadyRegistered(err) {
			writeJSON(w, http.StatusOK, registerResponse{MaterialID: id, Registered: true, AlreadyRegistered: true})
			return
		}

		writeJSON(w, http.StatusCreated, registerResponse{MaterialID: id, Registered: true})
	}
}

func (s Server) createRatingHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var input studyshelf.RatingInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "Failed to parse request", http.StatusBadRequest)
			return
		}

		if err := input.Valid(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rating, err := s.aggregator.Submit(r.Context(), input)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, rating)
	}
}

func (s Server) linkStudentHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Failed to parse request", http.StatusBadRequest)
			return
		}

		student, err := s.guardian.LinkStudent(r.Context(), req.Code)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, student)
	}
}

func (s Server) listStudentsHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		students, err := s.guardian.ListStudents(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if students == nil {
			students = []studyshelf.Student{}
		}

		writeJSON(w, http.StatusOK, students)
	}
}

func (s Server) examResultsHandler() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		results, err := s.guardian.ListExamResults(r.Context(), p.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if results == nil {
			results = []studyshelf.ExamResult{}
		}

		writeJSON(w, http.StatusOK, results)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error writing response: %s", err)
	}
}

// writeError maps a catalog ServiceError onto the response, passing the
// upstream status through where it makes sense and falling back to 502 for
// transport failures.
func writeError(w http.ResponseWriter, err error) {
	log.Printf("request failed: %s", err)

	var svcErr *studyshelf.ServiceError
	if errors.As(err, &svcErr) {
		status := svcErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		http.Error(w, svcErr.Error(), status)
		return
	}

	http.Error(w, "upstream catalog unavailable", http.StatusBadGateway)
}
