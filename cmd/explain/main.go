// Command explain defines a single term: explain <word> [context...]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

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
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	if err := cfg.ValidateGenerator(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return &rag.ConfigurationError{Key: "LOG_LEVEL", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	gen, err := app.NewGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	words := rag.NewWordService(gen, cfg.RAG.Subject, logger)

	explain := func(ctx context.Context, input string) error {
		word, usage := splitInput(input)
		res, err := words.Explain(ctx, word, usage)
		if err != nil {
			return err
		}
		cli.PrintWord(os.Stdout, res)
		return nil
	}

	input, interactive, err := cli.ResolveInput(args, os.Stdin, cli.IsTerminal(os.Stdin))
	if err != nil {
		return err
	}
	if !interactive {
		return explain(ctx, input)
	}
	fmt.Println("Enter a word, optionally followed by its context. Type 'q' to stop.")
	return cli.RunREPL(ctx, os.Stdin, os.Stdout, "📖 Word: ", explain)
}

// splitInput treats the first field as the word and the rest as context.
func splitInput(input string) (word, usage string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
