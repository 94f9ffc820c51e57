package googlebooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/util"
)

func volumePayload(id, title string, authors []string) map[string]interface{} {
	info := map[string]interface{}{
		"title": title,
	}
	if authors != nil {
		info["authors"] = authors
	}
	return map[string]interface{}{
		"id":         id,
		"volumeInfo": info,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("", logger.Get())
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.NotNil(t, client.client)
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name          string
		setupServer   func(t *testing.T) *httptest.Server
		query         string
		maxResults    int
		expectError   bool
		expectedCount int
	}{
		{
			name: "successful search",
			setupServer: func(t *testing.T) *httptest.Server {
				handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "/volumes", r.URL.Path)
					assert.Equal(t, "golang", r.URL.Query().Get("q"))
					assert.Equal(t, "5", r.URL.Query().Get("maxResults"))

					response := map[string]interface{}{
						"totalItems": 2,
						"items": []map[string]interface{}{
							volumePayload("vol1", "The Go Programming Language", []string{"Alan Donovan", "Brian Kernighan"}),
							volumePayload("vol2", "Learning Go", []string{"Jon Bodner"}),
						},
					}
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(response)
				})
				return httptest.NewServer(handler)
			},
			query:         "golang",
			maxResults:    5,
			expectedCount: 2,
		},
		{
			name: "no matches yields empty slice",
			setupServer: func(t *testing.T) *httptest.Server {
				handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{"totalItems": 0})
				})
				return httptest.NewServer(handler)
			},
			query:         "nosuchbookzzz",
			maxResults:    5,
			expectedCount: 0,
		},
		{
			name: "server error",
			setupServer: func(t *testing.T) *httptest.Server {
				handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				})
				return httptest.NewServer(handler)
			},
			query:       "golang",
			maxResults:  5,
			expectError: true,
		},
		{
			name: "malformed body",
			setupServer: func(t *testing.T) *httptest.Server {
				handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("not json"))
				})
				return httptest.NewServer(handler)
			},
			query:       "golang",
			maxResults:  5,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.setupServer(t)
			defer server.Close()

			client := NewClient(server.URL, logger.Get())
			books, err := client.Search(context.Background(), tt.query, tt.maxResults)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, books, tt.expectedCount)
			for _, book := range books {
				assert.NotEmpty(t, book.ID)
				assert.NotEmpty(t, book.Title)
			}
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	// An empty query short-circuits without contacting the catalog
	client := NewClient("http://127.0.0.1:1", logger.Get())
	books, err := client.Search(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestSearchQuotaHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, logger.Get())
	_, err := client.Search(context.Background(), "golang", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrRateLimited)

	// The limiter honors the server's Retry-After when longer
	assert.Greater(t, client.limiter.GetRate(), util.DefaultRate)
}

func TestGetByID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/volumes/vol42":
			payload := volumePayload("vol42", "Moby Dick", []string{"Herman Melville"})
			payload["volumeInfo"].(map[string]interface{})["industryIdentifiers"] = []map[string]string{
				{"type": "ISBN_10", "identifier": "1503280780"},
				{"type": "ISBN_13", "identifier": "9781503280786"},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, logger.Get())

	t.Run("found", func(t *testing.T) {
		book, err := client.GetByID(context.Background(), "vol42")
		require.NoError(t, err)
		assert.Equal(t, "vol42", book.ID)
		assert.Equal(t, "Moby Dick", book.Title)
		assert.Equal(t, []string{"Herman Melville"}, book.Authors)
		assert.Equal(t, "1503280780", book.ISBN10)
		assert.Equal(t, "9781503280786", book.ISBN13)
	})

	t.Run("not found is explicit, not a raised failure", func(t *testing.T) {
		book, err := client.GetByID(context.Background(), "missing")
		assert.Nil(t, book)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := client.GetByID(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestNormalizeVolumeDefaultsAuthors(t *testing.T) {
	item := volumeItem{ID: "v1"}
	item.VolumeInfo.Title = "Anonymous Work"

	book := normalizeVolume(item)
	assert.Equal(t, []string{"Unknown Author"}, book.Authors)
	assert.Empty(t, book.Publisher)
	assert.Empty(t, book.ISBN13)
	assert.Zero(t, book.PageCount)
}

func TestSearchResultShape(t *testing.T) {
	// All returned items keep provider order and carry id + title
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"totalItems": 3,
			"items": []map[string]interface{}{
				volumePayload("a", "First", nil),
				volumePayload("b", "Second", []string{"X"}),
				volumePayload("c", "Third", []string{"Y", "Z"}),
			},
		}
		json.NewEncoder(w).Encode(response)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, logger.Get())
	books, err := client.Search(context.Background(), "anything", 10)
	require.NoError(t, err)

	require.Len(t, books, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{books[0].ID, books[1].ID, books[2].ID})
	assert.Equal(t, []string{"Unknown Author"}, books[0].Authors)
}
