// Package library coordinates the catalog client, the user data store and
// the local cache into the book loading flows the app exposes. It decides
// between live and cached data based on connectivity and keeps the cache
// refreshed as a side effect of successful live loads.
package library

import (
	"context"
	"errors"
	"sync"

	"github.com/bookfinder/bookfinder/internal/api/googlebooks"
	"github.com/bookfinder/bookfinder/internal/api/hardcover"
	"github.com/bookfinder/bookfinder/internal/cache"
	"github.com/bookfinder/bookfinder/internal/connectivity"
	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/models"
	"github.com/bookfinder/bookfinder/internal/store"
)

// ErrOfflineNoCache is returned when the device is offline and the
// requested data has never been cached
var ErrOfflineNoCache = errors.New("offline and no cached copy available")

// RatingProvider supplies community ratings keyed by ISBN-13. Optional:
// a nil provider disables rating enrichment.
type RatingProvider interface {
	GetRatingByISBN(ctx context.Context, isbn13 string) (*hardcover.CommunityRating, error)
}

// BookDetail is a book together with its data provenance
type BookDetail struct {
	models.Book
	// FromCache is true when the record was served from the local cache
	// instead of a live catalog fetch
	FromCache bool `json:"fromCache"`
}

// Service implements the book loading flows
type Service struct {
	catalog    googlebooks.CatalogClient
	users      *store.Repository
	cache      cache.Store
	checker    connectivity.Checker
	ratings    RatingProvider
	maxResults int
	logger     *logger.Logger
}

// NewService creates a library service. ratings may be nil to disable
// community rating enrichment.
func NewService(catalog googlebooks.CatalogClient, users *store.Repository, cacheStore cache.Store, checker connectivity.Checker, ratings RatingProvider, maxResults int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Service{
		catalog:    catalog,
		users:      users,
		cache:      cacheStore,
		checker:    checker,
		ratings:    ratings,
		maxResults: maxResults,
		logger:     log,
	}
}

// Search runs a live catalog search. Search results are never cached,
// only detail records are.
func (s *Service) Search(ctx context.Context, query string) ([]models.Book, error) {
	return s.catalog.Search(ctx, query, s.maxResults)
}

// LoadBookDetail returns the detail record for a book. When online it
// fetches live and overwrites the cached copy. When the live fetch fails
// or the device is offline it falls back to the cache; offline with no
// cached copy yields ErrOfflineNoCache.
func (s *Service) LoadBookDetail(ctx context.Context, bookID string) (*BookDetail, error) {
	online := s.checker.Online(ctx)

	var fetchErr error
	if online {
		book, err := s.catalog.GetByID(ctx, bookID)
		if err == nil {
			s.enrichRating(ctx, book)
			s.cache.Put(cache.BookDetailKey(bookID), book)
			return &BookDetail{Book: *book, FromCache: false}, nil
		}
		if errors.Is(err, googlebooks.ErrNotFound) {
			return nil, err
		}
		fetchErr = err
		s.logger.Warn("Live book fetch failed, trying cache", map[string]interface{}{
			"book_id": bookID,
			"error":   err.Error(),
		})
	}

	var cached models.Book
	if s.cache.Get(cache.BookDetailKey(bookID), &cached) {
		return &BookDetail{Book: cached, FromCache: true}, nil
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	return nil, ErrOfflineNoCache
}

// HydrateBooks resolves book IDs to full detail records concurrently.
// IDs that fail to resolve are dropped from the result rather than
// failing the whole batch; order of the surviving books follows the
// input order.
func (s *Service) HydrateBooks(ctx context.Context, bookIDs []string) []BookDetail {
	if len(bookIDs) == 0 {
		return []BookDetail{}
	}

	results := make([]*BookDetail, len(bookIDs))
	var wg sync.WaitGroup
	for i, id := range bookIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			detail, err := s.LoadBookDetail(ctx, id)
			if err != nil {
				s.logger.Debug("Dropping unresolvable book from batch", map[string]interface{}{
					"book_id": id,
					"error":   err.Error(),
				})
				return
			}
			results[i] = detail
		}(i, id)
	}
	wg.Wait()

	books := make([]BookDetail, 0, len(bookIDs))
	for _, detail := range results {
		if detail != nil {
			books = append(books, *detail)
		}
	}
	return books
}

// LoadReadingList returns the user's reading list as hydrated books.
// Online the list is hydrated live and the snapshot cached; offline the
// last cached snapshot is served regardless of which user produced it.
func (s *Service) LoadReadingList(ctx context.Context, uid string) ([]BookDetail, error) {
	if !s.checker.Online(ctx) {
		var snapshot []BookDetail
		if s.cache.Get(cache.ReadingListKey, &snapshot) {
			return snapshot, nil
		}
		return nil, ErrOfflineNoCache
	}

	profile, err := s.users.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	books := s.HydrateBooks(ctx, profile.ReadingList)
	s.cache.Put(cache.ReadingListKey, books)
	return books, nil
}

// LoadFavorites returns the user's favorites as hydrated books
func (s *Service) LoadFavorites(ctx context.Context, uid string) ([]BookDetail, error) {
	ids, err := s.users.GetFavoriteBookIDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.HydrateBooks(ctx, ids), nil
}

// ToggleFavorite flips a book's favorite membership and reports the new state
func (s *Service) ToggleFavorite(ctx context.Context, uid, bookID string) (bool, error) {
	favorited, err := s.users.IsBookFavorited(ctx, uid, bookID)
	if err != nil {
		return false, err
	}
	if favorited {
		return false, s.users.RemoveFromFavorites(ctx, uid, bookID)
	}
	return true, s.users.AddToFavorites(ctx, uid, bookID)
}

// ToggleReadingList flips a book's reading list membership and reports
// the new state
func (s *Service) ToggleReadingList(ctx context.Context, uid, bookID string) (bool, error) {
	listed, err := s.users.IsInReadingList(ctx, uid, bookID)
	if err != nil {
		return false, err
	}
	if listed {
		return false, s.users.RemoveFromReadingList(ctx, uid, bookID)
	}
	return true, s.users.AddToReadingList(ctx, uid, bookID)
}

// AddReview records a review for a book and invalidates the cached
// review snapshot. A user's second review of the same book replaces
// their first.
func (s *Service) AddReview(ctx context.Context, uid, bookID string, rating int, body string) (string, error) {
	reviewID, err := s.users.AddBookReview(ctx, uid, bookID, rating, body)
	if err != nil {
		return "", err
	}
	s.cache.Delete(cache.BookReviewsKey(bookID))
	return reviewID, nil
}

// DeleteReview removes a user's own review and invalidates the cached
// review snapshot
func (s *Service) DeleteReview(ctx context.Context, uid, reviewID string) error {
	review, err := s.users.GetReviewByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if err := s.users.DeleteBookReview(ctx, uid, reviewID); err != nil {
		return err
	}
	s.cache.Delete(cache.BookReviewsKey(review.BookID))
	return nil
}

// GetBookReviews returns the stored reviews for a book and refreshes the
// cached snapshot
func (s *Service) GetBookReviews(ctx context.Context, bookID string) ([]store.Review, error) {
	reviews, err := s.users.GetBookReviews(ctx, bookID)
	if err != nil {
		var snapshot []store.Review
		if s.cache.Get(cache.BookReviewsKey(bookID), &snapshot) {
			return snapshot, nil
		}
		return nil, err
	}
	s.cache.Put(cache.BookReviewsKey(bookID), reviews)
	return reviews, nil
}

// enrichRating fills in a missing average rating from the community
// rating provider. Enrichment is best effort and never fails the load.
func (s *Service) enrichRating(ctx context.Context, book *models.Book) {
	if s.ratings == nil || book.AverageRating > 0 || book.ISBN13 == "" {
		return
	}
	rating, err := s.ratings.GetRatingByISBN(ctx, book.ISBN13)
	if err != nil {
		if !errors.Is(err, hardcover.ErrBookNotFound) {
			s.logger.Debug("Community rating lookup failed", map[string]interface{}{
				"book_id": book.ID,
				"isbn13":  book.ISBN13,
				"error":   err.Error(),
			})
		}
		return
	}
	book.AverageRating = rating.Rating
	book.RatingsCount = rating.RatingsCount
}
