package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookfinder/bookfinder/internal/logger"
)

// Store is a best-effort string-keyed JSON store used for offline fallback
// and small local preferences. Put and Get never return errors: a failed
// write reports false and a missing or undecodable entry reports a miss.
// There is no TTL, no eviction and no size bound.
type Store interface {
	// Put serializes value under key and verifies the write by reading it
	// back. Returns true only when the stored bytes match the serialized
	// input.
	Put(key string, value interface{}) bool

	// Get reads and deserializes the entry for key into out. Returns false
	// on a missing key or an undecodable payload.
	Get(key string, out interface{}) bool

	// Delete removes the entry for key if present
	Delete(key string)
}

// fileStore keeps one JSON file per key under a base directory
type fileStore struct {
	dir string
	log *logger.Logger
}

// NewFileStore creates a file-backed store rooted at dir
func NewFileStore(dir string, log *logger.Logger) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get()
	}
	return &fileStore{
		dir: dir,
		log: log,
	}, nil
}

// path maps a cache key to a file path. Keys are flat strings; anything that
// could escape the directory is flattened.
func (s *fileStore) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".json")
}

func (s *fileStore) Put(key string, value interface{}) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error("Failed to serialize cache value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}

	target := s.path(key)

	// Write to a temp file in the same directory, then rename into place
	tmpFile, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp.*")
	if err != nil {
		s.log.Error("Failed to create temp cache file", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		if _, err := os.Stat(tmpPath); err == nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		s.log.Error("Failed to write cache file", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	if err := tmpFile.Sync(); err != nil {
		return false
	}
	if err := tmpFile.Close(); err != nil {
		return false
	}
	if err := os.Rename(tmpPath, target); err != nil {
		s.log.Error("Failed to rename cache file", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}

	// Verify the write by reading it back and comparing serialized forms
	saved, err := os.ReadFile(target)
	if err != nil || !bytes.Equal(saved, data) {
		s.log.Warn("Cache write verification failed", map[string]interface{}{
			"key": key,
		})
		return false
	}

	s.log.Debug("Cache entry stored", map[string]interface{}{
		"key":   key,
		"bytes": len(data),
	})
	return true
}

func (s *fileStore) Get(key string, out interface{}) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("Failed to read cache file", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn("Discarding undecodable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}

	s.log.Debug("Cache hit", map[string]interface{}{"key": key})
	return true
}

func (s *fileStore) Delete(key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.log.Error("Failed to delete cache file", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
