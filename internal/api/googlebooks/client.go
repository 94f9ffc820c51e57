package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/models"
	"github.com/bookfinder/bookfinder/internal/util"
)

// ErrNotFound is returned when the catalog has no volume for the given id
var ErrNotFound = errors.New("book not found")

// DefaultBaseURL is the default base URL for the Google Books API
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// Client is a client for the Google Books volumes API. Requests go
// through a token bucket limiter to stay under the API quota.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *util.RateLimiter
	logger  *logger.Logger
}

// NewClient creates a new Google Books catalog client
func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: util.NewRateLimiter(util.DefaultRate, util.DefaultBurst),
		logger:  log,
	}
}

// volumeItem is a single volume entry as returned by the API
type volumeItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		Description         string   `json:"description"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		PageCount     int      `json:"pageCount"`
		Categories    []string `json:"categories"`
		AverageRating float64  `json:"averageRating"`
		RatingsCount  int      `json:"ratingsCount"`
		ImageLinks    struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
		Language    string `json:"language"`
		PreviewLink string `json:"previewLink"`
		InfoLink    string `json:"infoLink"`
	} `json:"volumeInfo"`
}

// searchResponse is the result envelope for a volume search
type searchResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

// Search queries the catalog with a free-text query and returns normalized
// book records in provider order. An empty or missing query yields an empty
// slice without a network round trip, as does a query with no matches.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Book, error) {
	if query == "" {
		return []models.Book{}, nil
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	u := c.baseURL + "/volumes?q=" + url.QueryEscape(query) + "&maxResults=" + strconv.Itoa(maxResults)
	log := c.logger.WithFields(map[string]interface{}{
		"endpoint": "/volumes",
		"query":    query,
	})

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("Search request failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := c.limiter.OnThrottle(retryAfter(resp))
		log.Warn("Catalog quota hit, backing off", map[string]interface{}{
			"retry_in": wait.String(),
		})
		return nil, fmt.Errorf("%w: retry in %s", util.ErrRateLimited, wait)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error("Unexpected status code", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	books := make([]models.Book, 0, len(result.Items))
	for _, item := range result.Items {
		books = append(books, normalizeVolume(item))
	}

	log.Debug("Catalog search completed", map[string]interface{}{
		"count": len(books),
	})
	return books, nil
}

// GetByID fetches a single volume by its provider identifier. A 404 from the
// catalog is reported as ErrNotFound; transport failures and malformed bodies
// surface as fetch errors for the caller to decide retry or fallback.
func (c *Client) GetByID(ctx context.Context, id string) (*models.Book, error) {
	if id == "" {
		return nil, fmt.Errorf("book ID is required")
	}

	u := c.baseURL + "/volumes/" + url.PathEscape(id)
	log := c.logger.WithFields(map[string]interface{}{
		"endpoint": "/volumes/{id}",
		"book_id":  id,
	})

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("Detail request failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := c.limiter.OnThrottle(retryAfter(resp))
		log.Warn("Catalog quota hit, backing off", map[string]interface{}{
			"retry_in": wait.String(),
		})
		return nil, fmt.Errorf("%w: retry in %s", util.ErrRateLimited, wait)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error("Unexpected status code", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var item volumeItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if item.ID == "" {
		return nil, fmt.Errorf("malformed volume payload: missing id")
	}

	book := normalizeVolume(item)
	return &book, nil
}

// retryAfter parses the Retry-After header, in seconds
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// normalizeVolume converts a provider volume entry into the application's
// book record. A missing author list defaults to a single placeholder entry;
// every other optional field passes through as absent.
func normalizeVolume(item volumeItem) models.Book {
	info := item.VolumeInfo

	authors := info.Authors
	if len(authors) == 0 {
		authors = []string{"Unknown Author"}
	}

	var isbn10, isbn13 string
	for _, ident := range info.IndustryIdentifiers {
		switch ident.Type {
		case "ISBN_10":
			isbn10 = ident.Identifier
		case "ISBN_13":
			isbn13 = ident.Identifier
		}
	}

	return models.Book{
		ID:             item.ID,
		Title:          info.Title,
		Subtitle:       info.Subtitle,
		Authors:        authors,
		Publisher:      info.Publisher,
		PublishedDate:  info.PublishedDate,
		Description:    info.Description,
		PageCount:      info.PageCount,
		Categories:     info.Categories,
		AverageRating:  info.AverageRating,
		RatingsCount:   info.RatingsCount,
		Thumbnail:      info.ImageLinks.Thumbnail,
		SmallThumbnail: info.ImageLinks.SmallThumbnail,
		Language:       info.Language,
		PreviewLink:    info.PreviewLink,
		InfoLink:       info.InfoLink,
		ISBN10:         isbn10,
		ISBN13:         isbn13,
	}
}
