// Command ask answers a textbook question from the command line, from piped
// stdin, or in an interactive session.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/app"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/cli"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/config"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/logging"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrNoInput) {
			fmt.Println("No input provided.")
			return
		}
		if errors.Is(err, context.Canceled) {
			fmt.Println("👋 Goodbye!")
			return
		}
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	query, interactive, err := cli.ResolveInput(args, os.Stdin, cli.IsTerminal(os.Stdin))
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return &rag.ConfigurationError{Key: "LOG_LEVEL", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	answer := func(ctx context.Context, q string) error {
		cli.Banner(os.Stdout, cfg.RAG.Subject, q)
		cli.PrintResult(os.Stdout, components.Service.Ask(ctx, rag.AskRequest{Query: q}))
		return nil
	}

	if !interactive {
		return answer(ctx, query)
	}

	fmt.Printf("\n🎓 %s Learning RAG - Interactive Mode\n", cfg.RAG.Subject)
	fmt.Printf("Connected to %s.\n", components.Store.Name())
	fmt.Println("Type 'quit', 'exit', or 'q' to stop.")
	fmt.Println()
	return cli.RunREPL(ctx, os.Stdin, os.Stdout, "🌱 Topic to explore: ", answer)
}
