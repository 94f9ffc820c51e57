package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/models"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), logger.Get())
	require.NoError(t, err)
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	book := models.Book{
		ID:      "vol42",
		Title:   "Moby Dick",
		Authors: []string{"Herman Melville"},
		ISBN13:  "9781503280786",
	}

	ok := store.Put(BookDetailKey(book.ID), book)
	require.True(t, ok)

	var got models.Book
	require.True(t, store.Get(BookDetailKey(book.ID), &got))
	assert.Equal(t, book, got)
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	var got models.Book
	assert.False(t, store.Get(BookDetailKey("absent"), &got))
}

func TestGetUndecodableEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, logger.Get())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "book_bad.json"), []byte("{truncated"), 0644))

	var got models.Book
	assert.False(t, store.Get(BookDetailKey("bad"), &got))
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.True(t, store.Put("k", "first"))
	require.True(t, store.Put("k", "second"))

	var got string
	require.True(t, store.Get("k", &got))
	assert.Equal(t, "second", got)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	require.True(t, store.Put("k", 1))
	store.Delete("k")

	var got int
	assert.False(t, store.Get("k", &got))

	// Deleting a missing key does not panic
	store.Delete("k")
}

func TestPutUnserializableValue(t *testing.T) {
	store := newTestStore(t)
	assert.False(t, store.Put("k", make(chan int)))
}

func TestKeysAreNamespaced(t *testing.T) {
	assert.Equal(t, "book_42", BookDetailKey("42"))
	assert.Equal(t, "reviews_42", BookReviewsKey("42"))
	assert.NotEqual(t, BookDetailKey("42"), BookReviewsKey("42"))
}

func TestPathTraversalKeysAreFlattened(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, logger.Get())
	require.NoError(t, err)

	require.True(t, store.Put("../escape", "x"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var got string
	assert.True(t, store.Get("../escape", &got))
}
