package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"nonsense-quiz-service/internal/config"
	"nonsense-quiz-service/internal/domain"
	"nonsense-quiz-service/internal/infra/postgres"
)

// NewSeedCmd loads approved quizzes from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert approved quizzes from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "seed file (defaults to quiz.seedFile)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Quiz.SeedFile
	}
	if file == "" {
		return fmt.Errorf("no seed file given")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	seed, err := config.LoadSeed(file)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := seedStore(ctx, postgres.NewStore(pool), seed)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"file": file, "quizzes": n}).Info("quizzes seeded")
	return nil
}

type quizAdder interface {
	AddQuiz(ctx context.Context, q domain.Quiz) (domain.Quiz, error)
}

func seedStore(ctx context.Context, store quizAdder, seed []config.SeedQuiz) (int, error) {
	for i, q := range toQuizzes(seed) {
		if _, err := store.AddQuiz(ctx, q); err != nil {
			return i, fmt.Errorf("seed quiz %d: %w", i+1, err)
		}
	}
	return len(seed), nil
}
