package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	studyshelf "github.com/tmuthoni/studyshelf"
)

var _ studyshelf.CatalogService = &Client{}
var _ studyshelf.GuardianService = &Client{}

// Client talks to the remote learning-material catalog API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("catalog base url cannot be empty")
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// NewClientWithHTTPClient is intended for tests; it avoids network access by
// allowing a custom RoundTripper.
func NewClientWithHTTPClient(baseURL, token string, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(baseURL, token, 0)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.http = httpClient
	}
	return c, nil
}

func (c *Client) ListMaterials(ctx context.Context, q studyshelf.PageQuery) (studyshelf.MaterialPage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	path := "/learning-materials"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page studyshelf.MaterialPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return studyshelf.MaterialPage{}, fmt.Errorf("failed to list materials: %w", err)
	}

	return page, nil
}

func (c *Client) GetRatingStatistics(ctx context.Context, materialID string) (studyshelf.RatingStatistics, error) {
	var stats studyshelf.RatingStatistics
	path := fmt.Sprintf("/learning-materials/%s/rating-statistics", url.PathEscape(materialID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return studyshelf.RatingStatistics{}, fmt.Errorf("failed to get rating statistics: %w", err)
	}

	return stats, nil
}

func (c *Client) ListRatings(ctx context.Context, materialID string) ([]studyshelf.Rating, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/learning-materials/%s/ratings", url.PathEscape(materialID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	ratings, err := normalizeRatings(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize ratings response: %w", err)
	}

	return ratings, nil
}

func (c *Client) Register(ctx context.Context, materialID string) error {
	path := fmt.Sprintf("/learning-materials/%s/register", url.PathEscape(materialID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to register for material %s: %w", materialID, err)
	}

	return nil
}

func (c *Client) CreateRating(ctx context.Context, input studyshelf.RatingInput) (studyshelf.Rating, error) {
	if err := input.Valid(); err != nil {
		return studyshelf.Rating{}, err
	}

	var rating studyshelf.Rating
	if err := c.doJSON(ctx, http.MethodPost, "/material-ratings", input, &rating); err != nil {
		return studyshelf.Rating{}, fmt.Errorf("failed to create rating: %w", err)
	}

	return rating, nil
}

func (c *Client) ListRegisteredMaterialIDs(ctx context.Context, page, size int) ([]string, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))

	var resp struct {
		Items []struct {
			MaterialID string `json:"materialId"`
		} `json:"content"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/registered-materials?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list registered materials: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.MaterialID != "" {
			ids = append(ids, item.MaterialID)
		}
	}

	return ids, nil
}

func (c *Client) LinkStudent(ctx context.Context, code string) (studyshelf.Student, error) {
	if strings.TrimSpace(code) == "" {
		return studyshelf.Student{}, fmt.Errorf("student link code cannot be empty")
	}

	body := struct {
		Code string `json:"code"`
	}{Code: code}

	var student studyshelf.Student
	if err := c.doJSON(ctx, http.MethodPost, "/students/link", body, &student); err != nil {
		return studyshelf.Student{}, fmt.Errorf("failed to link student: %w", err)
	}

	return student, nil
}

func (c *Client) ListStudents(ctx context.Context) ([]studyshelf.Student, error) {
	var students []studyshelf.Student
	if err := c.doJSON(ctx, http.MethodGet, "/students", nil, &students); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	return students, nil
}

func (c *Client) ListExamResults(ctx context.Context, studentID string) ([]studyshelf.ExamResult, error) {
	var results []studyshelf.ExamResult
	path := fmt.Sprintf("/students/%s/exam-results", url.PathEscape(studentID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &results); err != nil {
		return nil, fmt.Errorf("failed to list exam results: %w", err)
	}

	return results, nil
}

// normalizeRatings flattens the three response shapes the ratings endpoint is
// known to produce: a bare array, a single rating object, or a page wrapper
// with a content field.
func normalizeRatings(raw json.RawMessage) ([]studyshelf.Rating, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var ratings []studyshelf.Rating
		if err := json.Unmarshal(trimmed, &ratings); err != nil {
			return nil, err
		}
		return ratings, nil
	}

	var wrapper struct {
		Content []studyshelf.Rating `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err == nil && wrapper.Content != nil {
		return wrapper.Content, nil
	}

	var single studyshelf.Rating
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	if single.ID == "" && single.MaterialID == "" {
		// an object with neither rating fields nor a content list
		return nil, nil
	}

	return []studyshelf.Rating{single}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return decodeServiceError(res)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode json: %w", err)
	}

	return nil
}

// decodeServiceError extracts the structured error payload from a non-2xx
// response, falling back to a generic message when the body is not parseable.
func decodeServiceError(res *http.Response) error {
	svcErr := &studyshelf.ServiceError{Status: res.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return svcErr
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		svcErr.Code = payload.Code
		svcErr.Message = payload.Message
		if svcErr.Message == "" {
			svcErr.Message = payload.Error
		}
	}

	return svcErr
}
