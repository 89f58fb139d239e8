package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"herdbook/internal/adapters/auth/gate"
	"herdbook/internal/adapters/media/blobsvc"
	"herdbook/internal/ports/auth"
	"herdbook/internal/ports/media"
	"herdbook/internal/router"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	// Verifier real solo si AUTH_BASE_URL está configurada; sin eso queda
	// el modo dev (X-Debug-User-ID).
	var verifier auth.AuthVerifier
	if base := os.Getenv("AUTH_BASE_URL"); base != "" {
		verifier = gate.NewVerifier(gate.NewClient(gate.Config{
			BaseURL: base,
			APIKey:  os.Getenv("AUTH_API_KEY"),
		}))
	}

	var blobs media.Store
	if base := os.Getenv("MEDIA_BASE_URL"); base != "" {
		store, err := blobsvc.NewStore(blobsvc.Config{
			BaseURL: base,
			APIKey:  os.Getenv("MEDIA_API_KEY"),
		})
		if err != nil {
			log.Fatalf("blob service config error: %v", err)
		}
		blobs = store
	}

	r := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Media:        blobs,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
