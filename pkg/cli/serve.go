package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/controller/server"
	"github.com/memento-care/memento/pkg/usecase/companion"
	"github.com/memento-care/memento/pkg/usecase/memory"
	"github.com/memento-care/memento/pkg/usecase/quiz"
	"github.com/memento-care/memento/pkg/usecase/reminder"
	"github.com/memento-care/memento/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shutdownGrace = 15 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MEMENTO_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, aiFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = setupLogger(ctx, cfg.logLevel)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			speech, err := cfg.newSpeechToText(ctx)
			if err != nil {
				return err
			}
			tts, err := cfg.newTextToSpeech(ctx)
			if err != nil {
				return err
			}
			analyzer, err := cfg.newSentimentAnalyzer(ctx)
			if err != nil {
				return err
			}
			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			memoryUC := memory.New(ctx, repo, gemini, memory.WithDimension(int(cfg.embeddingDimension)))

			companionOpts := []companion.Option{}
			if storage != nil {
				companionOpts = append(companionOpts, companion.WithStorage(storage))
			}
			companionUC := companion.New(repo, gemini, speech, tts, analyzer, memoryUC, companionOpts...)
			quizUC := quiz.New(repo, gemini)
			reminderUC := reminder.New(repo)

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(companionUC, quizUC, reminderUC).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logging.From(ctx).Info("starting HTTP server", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return goerr.Wrap(err, "HTTP server failed")
			case <-ctx.Done():
			}

			logging.From(ctx).Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shut down HTTP server")
			}

			return nil
		},
	}
}
