package googlebooks

import (
	"context"

	"github.com/bookfinder/bookfinder/internal/models"
)

// CatalogClient defines the interface for the book catalog
type CatalogClient interface {
	// Search returns normalized book records matching the query, in
	// provider order, at most maxResults entries
	Search(ctx context.Context, query string, maxResults int) ([]models.Book, error)

	// GetByID returns a single book record or ErrNotFound
	GetByID(ctx context.Context, id string) (*models.Book, error)
}

// Ensure Client implements the interface
var _ CatalogClient = (*Client)(nil)
