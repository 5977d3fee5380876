package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"omniquiz-service/internal/app"
	"omniquiz-service/internal/config"
	"omniquiz-service/internal/domain"
	"omniquiz-service/internal/infra/memory"
	pgstore "omniquiz-service/internal/infra/postgres"
	redisinfra "omniquiz-service/internal/infra/redis"
	transport "omniquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the host server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.PackLoader
	if pool != nil {
		loader = pgstore.NewPackStore(pool)
	}
	libraryTTL := config.TTLDuration(cfg.Quiz.LibraryTTL, 10*time.Minute)

	var games app.GameStore
	var library app.QuizLibrary
	var liveDoc app.LiveDocument
	var buzz app.BuzzChannel
	if redisClient != nil {
		games = redisinfra.NewGameStore(redisClient)
		library = redisinfra.NewQuizLibrary(redisClient, loader, libraryTTL)
		liveDoc = redisinfra.NewLiveDocument(redisClient)
		buzz = redisinfra.NewBuzzChannel(redisClient)
	} else {
		games = memory.NewGameStore()
		library = memory.NewQuizLibraryWithLoader(loader, libraryTTL)
		liveDoc = memory.NewLiveDocument()
		buzz = memory.NewBuzzChannel()
	}

	engine := app.NewEngine(cfg.TimerSeconds())
	service := app.NewGameService(engine, games, library, liveDoc, buzz)

	serverCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	service.StartLivePublisher(serverCtx)
	service.StartBuzzListener(serverCtx)

	if err := service.SeedLibrary(serverCtx, defaultQuizPacks()); err != nil {
		log.Printf("library seed skipped: %v", err)
	}

	wsHandler := transport.NewWSHandler(service, liveDoc)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/host", wsHandler.ServeHost)
	mux.HandleFunc("/ws/live", wsHandler.ServeLive)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting omniquiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// defaultQuizPacks is the bulk-seed import applied once per store; swap in a
// curated set loaded from Postgres for production events.
func defaultQuizPacks() []domain.SavedQuiz {
	return []domain.SavedQuiz{
		{
			ID:      uuid.NewString(),
			Title:   "Starter Pack",
			SavedAt: time.Now(),
			Data: domain.QuizData{
				Categories: []string{"Science", "History"},
				Questions: [][]domain.Question{
					{
						{Category: "Science", Value: 100, Question: "What planet is known as the Red Planet?", Answer: "Mars",
							Options: []string{"Mars", "Venus", "Jupiter", "Mercury"}},
						{Category: "Science", Value: 200, Question: "What gas do plants absorb from the atmosphere?", Answer: "Carbon dioxide"},
					},
					{
						{Category: "History", Value: 100, Question: "In which year did the Berlin Wall fall?", Answer: "1989"},
						{Category: "History", Value: 200, Question: "Who was the first emperor of Rome?", Answer: "Augustus",
							Options: []string{"Augustus", "Julius Caesar", "Nero", "Trajan"}},
					},
				},
			},
		},
	}
}
