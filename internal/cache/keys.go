package cache

// Cache keys combine a resource kind prefix with the book identifier.
// Book detail and reviews share the same store under distinct prefixes.
const (
	// ReadingListKey holds the last hydrated reading list snapshot
	ReadingListKey = "reading_list"
	// ThemeKey holds the persisted theme preference
	ThemeKey = "theme"
)

// BookDetailKey returns the cache key for a book's detail record
func BookDetailKey(bookID string) string {
	return "book_" + bookID
}

// BookReviewsKey returns the cache key for a book's reviews
func BookReviewsKey(bookID string) string {
	return "reviews_" + bookID
}
