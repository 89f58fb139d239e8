package router

import (
	"database/sql"
	"net/http"
	"os"

	mediamem "herdbook/internal/adapters/media/memory"
	mem "herdbook/internal/adapters/storage/memory"
	pg "herdbook/internal/adapters/storage/postgres"
	"herdbook/internal/adapters/storage/postgres/migrations"
	"herdbook/internal/domain/animals"
	"herdbook/internal/domain/lineage"
	"herdbook/internal/domain/reports"
	"herdbook/internal/middleware"
	"herdbook/internal/platform/logger"
	"herdbook/internal/ports/auth"
	"herdbook/internal/ports/media"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev: X-Debug-User-ID)

	// Opcional: si viene, usa Postgres. Si no, intenta DB_DSN y cae a in-memory.
	DB *sql.DB

	// Opcional: storage de imágenes. Si es nil, usa el in-memory (dev/tests).
	Media media.Store

	// Opcional: logger. Si es nil, se crea desde env.
	Log logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	log := opts.Log
	if log == nil {
		log = logger.NewFromEnv()
	}

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("postgres unavailable, falling back to in-memory", map[string]any{"err": err.Error()})
			}
		}
	}

	var repo animals.Repository
	if db != nil {
		if err := migrations.MigrateUp(db); err != nil {
			log.Error("schema migration failed", map[string]any{"err": err.Error()})
		}
		repo = pg.NewAnimalsRepo(db)
	} else {
		repo = mem.NewAnimalsRepo()
	}

	blobs := opts.Media
	if blobs == nil {
		blobs = mediamem.NewStore()
	}

	// Services por módulo
	animalsSvc := animals.NewService(repo)
	lineageSvc := lineage.NewService(repo)
	reportsSvc := reports.NewService(repo)

	// Rutas por módulo
	animals.RegisterRoutes(r, animalsSvc, blobs, log)
	lineage.RegisterRoutes(r, lineageSvc, log)
	reports.RegisterRoutes(r, reportsSvc, log)

	return r
}
