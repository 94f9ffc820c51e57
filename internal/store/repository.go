package store

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathRand "math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bookfinder/bookfinder/internal/logger"
)

// Common errors
var (
	// ErrNotFound is returned when no profile exists for the given uid
	ErrNotFound = errors.New("user not found")
	// ErrReviewNotFound is returned when no review exists for the given id
	ErrReviewNotFound = errors.New("review not found")
	// ErrInvalidRating is returned for ratings outside 1-5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Repository handles all reads and writes against the user and review
// documents.
//
// Membership list mutations are read-modify-write of the full list with no
// store-level atomicity: two concurrent writers working from the same stale
// snapshot can silently drop each other's update. Callers that need
// stronger guarantees must serialize list mutations per user.
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewRepository creates a new repository on the given database
func NewRepository(database *Database, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.Get()
	}
	return &Repository{
		db:     database.GetDB(),
		logger: log,
	}
}

// SaveUserData creates the user profile document at signup
func (r *Repository) SaveUserData(ctx context.Context, uid, firstName, lastName, email string) (*UserProfile, error) {
	profile := &UserProfile{
		ID:          generateDocID(),
		UID:         uid,
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Favorites:   StringList{},
		ReadingList: StringList{},
		ReadHistory: StringList{},
		Reviews:     StringMap{},
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	r.logger.Info("User profile created", map[string]interface{}{
		"uid": uid,
	})
	return profile, nil
}

// GetUserByUID retrieves a user profile by the auth user identifier. The
// lookup is by the uid field, not the document primary key.
func (r *Repository) GetUserByUID(ctx context.Context, uid string) (*UserProfile, error) {
	var profile UserProfile
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &profile, nil
}

// TouchLastLogin stamps the profile's last login time
func (r *Repository) TouchLastLogin(ctx context.Context, uid string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&UserProfile{}).
		Where("uid = ?", uid).
		Update("last_login_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to update last login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddToFavorites adds a book to the user's favorites. Adding a book that is
// already present is a no-op; the list never holds duplicates.
func (r *Repository) AddToFavorites(ctx context.Context, uid, bookID string) error {
	return r.addToList(ctx, uid, bookID, "favorites", func(p *UserProfile) *StringList { return &p.Favorites })
}

// RemoveFromFavorites removes a book from the user's favorites
func (r *Repository) RemoveFromFavorites(ctx context.Context, uid, bookID string) error {
	return r.removeFromList(ctx, uid, bookID, "favorites", func(p *UserProfile) *StringList { return &p.Favorites })
}

// AddToReadingList adds a book to the user's reading list
func (r *Repository) AddToReadingList(ctx context.Context, uid, bookID string) error {
	return r.addToList(ctx, uid, bookID, "reading_list", func(p *UserProfile) *StringList { return &p.ReadingList })
}

// RemoveFromReadingList removes a book from the user's reading list
func (r *Repository) RemoveFromReadingList(ctx context.Context, uid, bookID string) error {
	return r.removeFromList(ctx, uid, bookID, "reading_list", func(p *UserProfile) *StringList { return &p.ReadingList })
}

// addToList reads the current list, appends when absent and writes the full
// list back. Last writer wins.
func (r *Repository) addToList(ctx context.Context, uid, bookID, column string, list func(*UserProfile) *StringList) error {
	if bookID == "" {
		return fmt.Errorf("book ID is required")
	}
	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return err
	}

	target := list(profile)
	if target.Contains(bookID) {
		return nil
	}
	*target = append(*target, bookID)

	if err := r.db.WithContext(ctx).
		Model(&UserProfile{}).
		Where("uid = ?", uid).
		Update(column, *target).Error; err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}

	r.logger.Debug("Book added to list", map[string]interface{}{
		"uid":     uid,
		"book_id": bookID,
		"list":    column,
	})
	return nil
}

// removeFromList reads the current list, filters by exact string match and
// writes the full list back
func (r *Repository) removeFromList(ctx context.Context, uid, bookID, column string, list func(*UserProfile) *StringList) error {
	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return err
	}

	target := list(profile)
	filtered := make(StringList, 0, len(*target))
	for _, id := range *target {
		if id != bookID {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == len(*target) {
		return nil
	}

	if err := r.db.WithContext(ctx).
		Model(&UserProfile{}).
		Where("uid = ?", uid).
		Update(column, filtered).Error; err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}

// IsBookFavorited re-fetches the profile and tests membership
func (r *Repository) IsBookFavorited(ctx context.Context, uid, bookID string) (bool, error) {
	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return false, err
	}
	return profile.Favorites.Contains(bookID), nil
}

// IsInReadingList re-fetches the profile and tests membership
func (r *Repository) IsInReadingList(ctx context.Context, uid, bookID string) (bool, error) {
	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return false, err
	}
	return profile.ReadingList.Contains(bookID), nil
}

// GetFavoriteBookIDs returns the current favorites snapshot
func (r *Repository) GetFavoriteBookIDs(ctx context.Context, uid string) ([]string, error) {
	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return profile.Favorites, nil
}

// AddBookReview creates a review document, stamps creation time, snapshots
// the author's display name and records the review in the user's
// book-to-review index. At most one review per user per book: when the
// index already holds an entry for bookID the existing review is updated in
// place and its identifier returned.
func (r *Repository) AddBookReview(ctx context.Context, uid, bookID string, rating int, body string) (string, error) {
	if bookID == "" {
		return "", fmt.Errorf("book ID is required")
	}
	if rating < 1 || rating > 5 {
		return "", ErrInvalidRating
	}

	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return "", err
	}

	if existingID, ok := profile.Reviews[bookID]; ok {
		now := time.Now()
		err := r.db.WithContext(ctx).
			Model(&Review{}).
			Where("id = ?", existingID).
			Updates(map[string]interface{}{
				"rating":     rating,
				"body":       body,
				"updated_at": now,
			}).Error
		if err != nil {
			return "", fmt.Errorf("failed to update review: %w", err)
		}
		r.logger.Debug("Review updated in place", map[string]interface{}{
			"uid":       uid,
			"book_id":   bookID,
			"review_id": existingID,
		})
		return existingID, nil
	}

	review := &Review{
		ID:          generateDocID(),
		BookID:      bookID,
		UserID:      uid,
		DisplayName: displayName(profile),
		Rating:      rating,
		Body:        body,
		CreatedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return "", fmt.Errorf("failed to create review: %w", err)
	}

	// Index update is a separate write; a failure here leaves the review
	// document without an index entry and is not rolled back.
	if profile.Reviews == nil {
		profile.Reviews = StringMap{}
	}
	profile.Reviews[bookID] = review.ID
	if err := r.db.WithContext(ctx).
		Model(&UserProfile{}).
		Where("uid = ?", uid).
		Update("reviews", profile.Reviews).Error; err != nil {
		return review.ID, fmt.Errorf("review created but index update failed: %w", err)
	}

	r.logger.Info("Review created", map[string]interface{}{
		"uid":       uid,
		"book_id":   bookID,
		"review_id": review.ID,
	})
	return review.ID, nil
}

// GetBookReviews returns all reviews for the given book, store-default order
func (r *Repository) GetBookReviews(ctx context.Context, bookID string) ([]Review, error) {
	var reviews []Review
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	return reviews, nil
}

// GetReviewByID retrieves a single review
func (r *Repository) GetReviewByID(ctx context.Context, reviewID string) (*Review, error) {
	var review Review
	err := r.db.WithContext(ctx).Where("id = ?", reviewID).First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// DeleteBookReview removes the review document and the corresponding entry
// from the user's index. The two writes are independent: a partial failure
// leaves them inconsistent and is not rolled back.
func (r *Repository) DeleteBookReview(ctx context.Context, uid, reviewID string) error {
	review, err := r.GetReviewByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != uid {
		return fmt.Errorf("review %s does not belong to user", reviewID)
	}

	if err := r.db.WithContext(ctx).Delete(&Review{}, "id = ?", reviewID).Error; err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	profile, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("review deleted but index cleanup failed: %w", err)
	}
	delete(profile.Reviews, review.BookID)
	if err := r.db.WithContext(ctx).
		Model(&UserProfile{}).
		Where("uid = ?", uid).
		Update("reviews", profile.Reviews).Error; err != nil {
		return fmt.Errorf("review deleted but index cleanup failed: %w", err)
	}
	return nil
}

func displayName(profile *UserProfile) string {
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		return profile.Email
	}
	return name
}

// generateDocID generates a unique document ID
func generateDocID() string {
	bytes := make([]byte, 16)
	if _, err := cryptoRand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		r := mathRand.New(mathRand.NewSource(time.Now().UnixNano()))
		return fmt.Sprintf("doc-%d", r.Int63())
	}
	return hex.EncodeToString(bytes)
}
