package media

import (
	"context"
	"errors"
)

var (
	ErrTooLarge    = errors.New("image too large")
	ErrBadType     = errors.New("unsupported image type")
	ErrUnavailable = errors.New("image storage unavailable")
)

// Store es el colaborador de almacenamiento de imágenes.
// El core solo persiste el filename que devuelve Put; los bytes viven afuera.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (filename string, err error)
	Delete(ctx context.Context, filename string) error
}
