package hardcover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hasura/go-graphql-client"

	"github.com/bookfinder/bookfinder/internal/logger"
)

// Common errors
var (
	// ErrBookNotFound is returned when no edition matches the given ISBN
	ErrBookNotFound = errors.New("book not found")
	// ErrInvalidInput is returned for empty or malformed lookup keys
	ErrInvalidInput = errors.New("invalid input")
)

const (
	// DefaultBaseURL is the default base URL for the Hardcover API
	DefaultBaseURL = "https://api.hardcover.app/v1/graphql"
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// CommunityRating is the community rating of a book on Hardcover
type CommunityRating struct {
	BookID       int64   `json:"book_id"`
	Title        string  `json:"title"`
	Rating       float64 `json:"rating"`
	RatingsCount int     `json:"ratings_count"`
}

// Client is a client for the Hardcover GraphQL API, used to enrich catalog
// records with community rating data
type Client struct {
	baseURL   string
	authToken string
	gqlClient *graphql.Client
	logger    *logger.Logger
}

// ClientConfig holds configuration options for the Hardcover client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultClientConfig returns a ClientConfig with default values
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// NewClient creates a new Hardcover client with the given token
func NewClient(token string, log *logger.Logger) *Client {
	return NewClientWithConfig(token, DefaultClientConfig(), log)
}

// NewClientWithConfig creates a new Hardcover client with a custom configuration
func NewClientWithConfig(token string, cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Get()
	}
	log = log.WithFields(map[string]interface{}{
		"component": "hardcover_client",
	})

	authClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerAddingTransport{
			token: token,
			rt:    http.DefaultTransport,
		},
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		authToken: token,
		gqlClient: graphql.NewClient(cfg.BaseURL, authClient),
		logger:    log,
	}
}

// headerAddingTransport adds the authorization header to every request
type headerAddingTransport struct {
	token string
	rt    http.RoundTripper
}

func (t *headerAddingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.rt.RoundTrip(req)
}

// GetRatingByISBN looks up the community rating of the book whose edition
// carries the given ISBN-13. Returns ErrBookNotFound when no edition matches.
func (c *Client) GetRatingByISBN(ctx context.Context, isbn13 string) (*CommunityRating, error) {
	if isbn13 == "" {
		return nil, fmt.Errorf("%w: isbn13 is required", ErrInvalidInput)
	}

	log := c.logger.WithFields(map[string]interface{}{
		"method": "GetRatingByISBN",
		"isbn13": isbn13,
	})

	var q struct {
		Books []struct {
			ID           graphql.Int    `graphql:"id"`
			Title        graphql.String `graphql:"title"`
			Rating       graphql.Float  `graphql:"rating"`
			RatingsCount graphql.Int    `graphql:"ratings_count"`
		} `graphql:"books(where: {editions: {isbn_13: {_eq: $isbn13}}}, limit: 1)"`
	}
	variables := map[string]interface{}{
		"isbn13": graphql.String(isbn13),
	}

	if err := c.gqlClient.Query(ctx, &q, variables); err != nil {
		log.Error("GraphQL query failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to query rating: %w", err)
	}

	if len(q.Books) == 0 {
		log.Debug("No Hardcover book for ISBN")
		return nil, ErrBookNotFound
	}

	book := q.Books[0]
	rating := &CommunityRating{
		BookID:       int64(book.ID),
		Title:        string(book.Title),
		Rating:       float64(book.Rating),
		RatingsCount: int(book.RatingsCount),
	}

	log.Debug("Fetched community rating", map[string]interface{}{
		"book_id":       rating.BookID,
		"rating":        rating.Rating,
		"ratings_count": rating.RatingsCount,
	})
	return rating, nil
}
