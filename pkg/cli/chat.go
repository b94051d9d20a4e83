package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/usecase/companion"
	"github.com/memento-care/memento/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg       config
		patientID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "patient-id",
			Aliases:     []string{"id"},
			Usage:       "Patient ID to chat as",
			Sources:     cli.EnvVars("MEMENTO_PATIENT_ID"),
			Destination: &patientID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, aiFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive companion chat in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = setupLogger(ctx, cfg.logLevel)

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

			memoryUC := memory.New(ctx, repo, gemini, memory.WithDimension(int(cfg.embeddingDimension)))
			companionUC := companion.New(repo, gemini, speech, tts, analyzer, memoryUC)

			patient, err := repo.GetPatient(ctx, model.PatientID(patientID))
			if err != nil {
				return goerr.Wrap(err, "failed to load patient", goerr.V("patient_id", patientID))
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          patient.FirstName() + "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create readline")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chatting as %s. Type 'exit' to quit.\n", patient.DisplayName)

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "" {
					continue
				}
				if message == "exit" {
					break
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " thinking..."
				sp.Start()
				result, err := companionUC.ProcessTextMessage(ctx, model.PatientID(patientID), message)
				sp.Stop()

				if err != nil {
					fmt.Fprintf(c.Root().Writer, "error: %s\n", err)
					continue
				}

				fmt.Fprintf(c.Root().Writer, "\nMia: %s\n", result.Response)
				if result.Sentiment != nil {
					fmt.Fprintf(c.Root().Writer, "  [sentiment: %s (%.2f)]\n",
						result.Sentiment.Category, result.Sentiment.Score)
				}
				for _, mem := range result.Memories {
					fmt.Fprintf(c.Root().Writer, "  [memory: %s (%.2f)]\n", mem.Summary, mem.Similarity)
				}
				fmt.Fprintln(c.Root().Writer)
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session ended\n")
			return nil
		},
	}
}
