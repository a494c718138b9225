package studyshelf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain types are defined in this file

// MaterialType distinguishes free from paid materials.
type MaterialType int

const (
	MaterialFree MaterialType = iota
	MaterialPaid
)

// A learning material in the remote catalog. Snapshots are immutable once
// fetched; a re-fetch replaces the whole collection.
type Material struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	ContentURL  string       `json:"contentUrl"`
	Type        MaterialType `json:"type"`
	TypeName    string       `json:"typeName"`
	SubjectID   string       `json:"subjectId"`
	SubjectName string       `json:"subjectName"`
	TeacherID   string       `json:"teacherId"`
	TeacherName string       `json:"teacherName"`
	Visible     bool         `json:"visible"`
	Price       float64      `json:"price,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (m Material) Valid() error {
	if m.ID == "" {
		return errors.New("Material id cannot be empty")
	}
	if m.Title == "" {
		return errors.New("Material title cannot be empty")
	}
	return nil
}

func (m Material) String() string {
	return fmt.Sprintf("%s (%s)", m.Title, m.ID)
}

// Server-aggregated rating summary for a single material. Read-only snapshot,
// reloaded whenever a detail view opens.
type RatingStatistics struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}

// A single user-submitted rating.
type Rating struct {
	ID         string    `json:"id"`
	MaterialID string    `json:"materialId"`
	RaterName  string    `json:"raterName,omitempty"`
	Score      float64   `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Payload for creating a new rating.
type RatingInput struct {
	MaterialID string  `json:"materialId"`
	Score      float64 `json:"rating"`
	Comment    string  `json:"comment,omitempty"`
}

func (r RatingInput) Valid() error {
	if r.MaterialID == "" {
		return errors.New("Rating material id cannot be empty")
	}
	if r.Score < 1 || r.Score > 5 {
		return errors.New("Rating must be between 1 and 5")
	}
	return nil
}

// A student account linked to the current guardian user.
type Student struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LinkedAt time.Time `json:"linkedAt"`
}

// A past exam result for a linked student.
type ExamResult struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Subject   string    `json:"subject"`
	Score     float64   `json:"score"`
	MaxScore  float64   `json:"maxScore"`
	TakenAt   time.Time `json:"takenAt"`
}

// Paging parameters for catalog listings.
type PageQuery struct {
	Page   int
	Size   int
	Search string
}

// A page of materials as returned by the catalog.
type MaterialPage struct {
	Items      []Material `json:"content"`
	TotalItems int        `json:"totalElements"`
	Page       int        `json:"page"`
}

// Service that talks to the remote material catalog
type CatalogService interface {
	ListMaterials(context.Context, PageQuery) (MaterialPage, error)
	GetRatingStatistics(ctx context.Context, materialID string) (RatingStatistics, error)
	ListRatings(ctx context.Context, materialID string) ([]Rating, error)
	Register(ctx context.Context, materialID string) error
	CreateRating(context.Context, RatingInput) (Rating, error)
	ListRegisteredMaterialIDs(ctx context.Context, page, size int) ([]string, error)
}

// Service for guardian accounts: linking students and reading exam history
type GuardianService interface {
	LinkStudent(ctx context.Context, code string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	ListExamResults(ctx context.Context, studentID string) ([]ExamResult, error)
}

// Persistent mirror of the registered-material id set. Backends are best-effort
// fallbacks, not a source of truth; see registry.Tracker.
type RegistrationStore interface {
	SaveIDs(ctx context.Context, ids []string) error
	LoadIDs(ctx context.Context) ([]string, error)
}

// ErrAlreadyRegistered is the recognized non-fatal registration outcome: the
// server already holds a registration for this user and material.
var ErrAlreadyRegistered = errors.New("already registered")

// CodeAlreadyRegistered is the server error code for a duplicate registration.
const CodeAlreadyRegistered = 1055

// ServiceError is a structured error payload returned by the catalog API.
type ServiceError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("catalog request failed with status %d", e.Status)
}

// Unwrap lets errors.Is(err, ErrAlreadyRegistered) see through a ServiceError
// carrying the duplicate-registration code or message.
func (e *ServiceError) Unwrap() error {
	if e.Code == CodeAlreadyRegistered || strings.Contains(strings.ToLower(e.Message), "already registered") {
		return ErrAlreadyRegistered
	}
	return nil
}

// IsAlreadyRegistered reports whether err is the recognized duplicate
// registration condition. It is a success outcome, never surfaced as an error.
func IsAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered)
}
