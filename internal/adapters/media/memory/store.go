package memory

import (
	"context"
	"strings"
	"sync"

	"herdbook/internal/ports/media"

	"github.com/google/uuid"
)

const maxUploadBytes = 5 << 20

// Store es un media.Store en memoria para dev y tests.
// Guarda los bytes en un mapa y asigna filenames con uuid, con las mismas
// reglas de tamaño/tipo que el adapter real.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewStore() *Store {
	return &Store{
		files: make(map[string][]byte),
	}
}

func (s *Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", media.ErrBadType
	}
	if len(data) > maxUploadBytes {
		return "", media.ErrTooLarge
	}

	var ext string
	switch strings.TrimSpace(strings.ToLower(contentType)) {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	default:
		return "", media.ErrBadType
	}

	filename := uuid.NewString() + ext

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filename] = data

	return filename, nil
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	return nil
}

// Len expone cuántos archivos hay guardados (para asserts en tests).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
