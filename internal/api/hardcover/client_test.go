package hardcover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookfinder/bookfinder/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClientWithConfig("test-token", ClientConfig{
		BaseURL: server.URL,
	}, logger.Get())
	return client, server
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("tok", logger.Get())
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, "tok", client.authToken)
	assert.NotNil(t, client.gqlClient)
}

func TestGetRatingByISBN(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "9781503280786", req.Variables["isbn13"])

		response := map[string]interface{}{
			"data": map[string]interface{}{
				"books": []map[string]interface{}{
					{
						"id":            42,
						"title":         "Moby Dick",
						"rating":        4.2,
						"ratings_count": 137,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	rating, err := client.GetRatingByISBN(context.Background(), "9781503280786")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rating.BookID)
	assert.Equal(t, "Moby Dick", rating.Title)
	assert.InDelta(t, 4.2, rating.Rating, 0.001)
	assert.Equal(t, 137, rating.RatingsCount)
}

func TestGetRatingByISBNNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": map[string]interface{}{
				"books": []map[string]interface{}{},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	rating, err := client.GetRatingByISBN(context.Background(), "0000000000000")
	assert.Nil(t, rating)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestGetRatingByISBNInvalidInput(t *testing.T) {
	client := NewClient("tok", logger.Get())
	_, err := client.GetRatingByISBN(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetRatingByISBNServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetRatingByISBN(context.Background(), "9781503280786")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBookNotFound)
}
