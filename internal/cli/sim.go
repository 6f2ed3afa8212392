package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mhrnqaruni/ata-live-client/internal/config"
	"github.com/Mhrnqaruni/ata-live-client/internal/simserver"
)

// newSimCmd runs the in-memory backend simulator for local development.
func newSimCmd(configPath *string) *cobra.Command {
	var quizFile string

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the in-memory quiz backend simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if quizFile != "" {
				cfg.Sim.QuizFile = quizFile
			}
			return runSim(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&quizFile, "quiz-file", "", "path to the quiz YAML script")
	return cmd
}

func runSim(ctx context.Context, cfg config.Config) error {
	if cfg.Sim.QuizFile == "" {
		return errors.New("no quiz script: set sim.quiz_file or --quiz-file")
	}

	quiz, err := simserver.LoadQuiz(cfg.Sim.QuizFile)
	if err != nil {
		return err
	}

	sim := simserver.New(quiz, clockwork.NewRealClock(), log.Logger)
	server := &http.Server{
		Addr:    ":" + cfg.Sim.Port,
		Handler: sim.Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Sim.Port).Str("quiz", quiz.Title).Msg("simulator listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down simulator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
