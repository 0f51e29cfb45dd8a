package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/Vovarama1992/assistantjs-go/internal/ai"
	"github.com/Vovarama1992/assistantjs-go/internal/logging"
	"github.com/Vovarama1992/assistantjs-go/internal/publicapi"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Projects ---
	registry := publicapi.DefaultRegistry()
	if path := os.Getenv("ASSISTANTJS_PROJECTS_FILE"); path != "" {
		r, err := publicapi.LoadRegistry(path)
		if err != nil {
			logger.Fatal().Err(err).Msg("load projects")
		}
		registry = r
	}

	// --- DB ---
	repo := publicapi.NewMemoryRepo()
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := openDB(ctx, dsn)
		if err != nil {
			logger.Fatal().Err(err).Msg("db")
		}
		defer db.Close()
		repo = publicapi.NewRepo(db)
	} else {
		logger.Info().Msg("DATABASE_URL not set, keeping conversations in memory")
	}

	// --- AI ---
	var aiClient ai.AI = ai.EchoAI{}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		aiClient = ai.NewOpenAIClient(key, os.Getenv("OPENAI_MODEL"), os.Getenv("OPENAI_BASE_URL"), logger)
	} else {
		logger.Info().Msg("OPENAI_API_KEY not set, using echo assistant")
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	svc := publicapi.NewService(registry, repo, aiClient, publicapi.WithLogger(logger))
	publicapi.RegisterRoutes(r, publicapi.NewHandler(svc, logger))

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", srv.Addr).Int("projects", len(registry.Projects)).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if err := publicapi.Migrate(pingCtx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
