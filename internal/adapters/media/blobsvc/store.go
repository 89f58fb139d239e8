package blobsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"herdbook/internal/platform/httpclient"
	"herdbook/internal/ports/media"
)

var ErrNotConfigured = errors.New("blob service not configured")

// Tipos de imagen que el servicio de blobs acepta. Se chequea acá para no
// gastar un round-trip en un upload que va a rebotar.
var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

const maxUploadBytes = 5 << 20

type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: header donde va la API key. Vacío => "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

// Store implementa media.Store contra el servicio de blobs.
type Store struct {
	client       *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewStore(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}

	c, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}

	return &Store{
		client:       c,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
	}, nil
}

func (s *Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrNotConfigured
	}
	if len(data) == 0 {
		return "", media.ErrBadType
	}
	if len(data) > maxUploadBytes {
		return "", media.ErrTooLarge
	}

	contentType = strings.TrimSpace(strings.ToLower(contentType))
	if _, ok := allowedTypes[contentType]; !ok {
		return "", media.ErrBadType
	}

	var out struct {
		Filename string `json:"filename"`
	}
	err := s.client.DoBytes(ctx, http.MethodPost, "/v1/images", s.headers(), contentType, data, &out)
	if err != nil {
		return "", s.mapError(err)
	}

	if strings.TrimSpace(out.Filename) == "" {
		return "", fmt.Errorf("%w: response missing filename", media.ErrUnavailable)
	}
	return out.Filename, nil
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil
	}

	err := s.client.DoJSON(ctx, http.MethodDelete, "/v1/images/"+filename, s.headers(), nil, nil)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			// ya no existe: delete idempotente
			return nil
		}
		return s.mapError(err)
	}
	return nil
}

func (s *Store) headers() map[string]string {
	if s.apiKey == "" {
		return nil
	}
	return map[string]string{s.apiKeyHeader: s.apiKey}
}

// mapError traduce errores HTTP del servicio de blobs a los errores
// tipados del port.
func (s *Store) mapError(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusRequestEntityTooLarge:
			return media.ErrTooLarge
		case http.StatusUnsupportedMediaType, http.StatusBadRequest:
			return media.ErrBadType
		}
	}
	return fmt.Errorf("%w: %v", media.ErrUnavailable, err)
}
