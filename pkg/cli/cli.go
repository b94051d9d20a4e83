package cli

import (
	"context"
	"os"

	"github.com/memento-care/memento/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "memento",
		Usage: "Memory companion backend for dementia care",
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// setupLogger installs the configured log level as the default logger
// and returns a context carrying it.
func setupLogger(ctx context.Context, level string) context.Context {
	logger := logging.New(level, os.Stdout)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}
