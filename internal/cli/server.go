package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"nonsense-quiz-service/internal/app"
	"nonsense-quiz-service/internal/config"
	"nonsense-quiz-service/internal/domain"
	"nonsense-quiz-service/internal/infra/memory"
	"nonsense-quiz-service/internal/infra/postgres"
	rediscache "nonsense-quiz-service/internal/infra/redis"
	transport "nonsense-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the persistence backends chosen from config.
type stores struct {
	pool        app.QuizPool
	ratings     app.RatingStore
	scores      app.ScoreStore
	search      app.QuizSearcher
	submissions app.SubmissionStore
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
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

	var backend stores
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := postgres.NewStore(pool)
		backend = stores{pool: store, ratings: store, scores: store, search: store, submissions: store}
	} else {
		store := memory.NewStore(seedQuizzes(cfg.Quiz.SeedFile))
		backend = stores{pool: store, ratings: store, scores: store, search: store, submissions: store}
		log.Warn("postgres not configured, using in-memory store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 5*time.Minute)

	var (
		quizPool interface {
			app.QuizPool
			app.PoolInvalidator
		}
		sessions app.SessionRepository
	)
	if redisClient != nil {
		quizPool = rediscache.NewPoolCache(redisClient, backend.pool, quizTTL)
		sessions = rediscache.NewSessionStore(redisClient, sessionTTL)
	} else {
		quizPool = memory.NewPoolCache(backend.pool, quizTTL)
		sessions = memory.NewSessionStore()
	}

	supply := app.NewQuizSupply(quizPool, backend.ratings, cfg.Quiz.Weighted)
	games := app.NewGameService(sessions, supply, backend.scores, app.GameConfig{
		RoundSize:    cfg.Game.RoundSize,
		QuestionTime: cfg.Game.QuestionSeconds,
		AdvanceDelay: config.TTLDuration(cfg.Game.AdvanceDelay, 3*time.Second),
	})
	catalog := app.NewCatalogService(backend.search, backend.submissions, quizPool)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(games).ServeWS)
	transport.NewAPI(games, catalog, cfg.Admin.Token).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting nonsense quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedQuizzes loads the in-memory quiz set from the seed file, falling back to a built-in sample.
func seedQuizzes(path string) []domain.Quiz {
	if path != "" {
		seed, err := config.LoadSeed(path)
		if err == nil && len(seed) > 0 {
			return toQuizzes(seed)
		}
		log.WithError(err).WithField("path", path).Warn("quiz seed file unusable, using built-in sample")
	}
	return sampleQuizzes()
}

func toQuizzes(seed []config.SeedQuiz) []domain.Quiz {
	quizzes := make([]domain.Quiz, 0, len(seed))
	for _, s := range seed {
		quizzes = append(quizzes, domain.Quiz{Question: s.Question, Answer: s.Answer, Approved: true})
	}
	return quizzes
}

func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{Question: "왕이 넘어지면?", Answer: "킹콩", Approved: true},
		{Question: "세상에서 가장 지루한 중학교는?", Answer: "로딩중", Approved: true},
		{Question: "바나나가 웃으면?", Answer: "바나나킥", Approved: true},
	}
}
