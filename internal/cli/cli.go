// Package cli holds the terminal front end shared by cmd/ask and cmd/explain.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"golang.org/x/term"
)

// ErrNoInput is returned when stdin is piped but empty.
var ErrNoInput = errors.New("no input provided")

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.FgGreen, color.Bold)
	faint   = color.New(color.Faint)
	warn    = color.New(color.FgRed)
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ResolveInput picks the query source: arguments first, then piped stdin.
// interactive is true when neither applies and a REPL should start.
func ResolveInput(args []string, stdin io.Reader, isTTY bool) (query string, interactive bool, err error) {
	if q := strings.TrimSpace(strings.Join(args, " ")); q != "" {
		return q, false, nil
	}
	if isTTY || stdin == nil {
		return "", true, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", false, fmt.Errorf("read stdin: %w", err)
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", false, ErrNoInput
	}
	return q, false, nil
}

// Handler answers one line of REPL input.
type Handler func(ctx context.Context, input string) error

// RunREPL reads lines until quit, exit, q, an empty line, EOF or ctx is
// cancelled (Ctrl-C). A handler error is printed and the loop continues.
func RunREPL(ctx context.Context, in io.Reader, out io.Writer, prompt string, handle Handler) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)

	var scanErr error
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr = scanner.Err()
	}()

	for {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		}
		label.Fprint(out, prompt)

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "👋 Goodbye!")
			return scanErr
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "quit", "exit", "q":
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		}
		if err := handle(ctx, strings.TrimSpace(line)); err != nil && ctx.Err() == nil {
			warn.Fprintf(out, "❌ Error: %v\n", err)
		}
		fmt.Fprintln(out)
	}
}

// Banner prints the header shown before an answer.
func Banner(w io.Writer, subject, topic string) {
	heading.Fprintf(w, "🎓 %s Learning RAG\n", title(subject))
	fmt.Fprintf(w, "❓ Topic: %s\n", topic)
	fmt.Fprintln(w, strings.Repeat("━", 50))
}

func PrintResult(w io.Writer, res *rag.AnswerResult) {
	label.Fprintln(w, "\n🤖 Answer:")
	fmt.Fprintln(w, res.Answer)

	if len(res.Sources) > 0 {
		label.Fprintln(w, "\n📚 Sources:")
		for i, s := range res.Sources {
			fmt.Fprintf(w, "  [%d] relevance %.3f", i+1, s.RelevanceScore)
			if s.Chapter != "" {
				fmt.Fprintf(w, " | %s", s.Chapter)
			}
			if s.Section != "" {
				fmt.Fprintf(w, " | %s", s.Section)
			}
			fmt.Fprintln(w)
			faint.Fprintf(w, "      %s\n", s.TextPreview)
		}
	}

	fmt.Fprintf(w, "\n⏱️  Response time: %.0fms (%.1fs)\n", res.TimingMS, res.TimingMS/1000)
	if res.Database != "" {
		fmt.Fprintf(w, "🌐 Database: %s\n", res.Database)
	}
}

func PrintWord(w io.Writer, res *rag.WordResult) {
	heading.Fprintf(w, "📖 %s", res.Word)
	faint.Fprintf(w, " (%s)\n", res.Context)
	fmt.Fprintln(w, strings.Repeat("━", 50))
	fmt.Fprintln(w, res.Explanation)
	fmt.Fprintf(w, "\n⏱️  Response time: %.0fms (%.1fs)\n", res.TimingMS, res.TimingMS/1000)
}

func title(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
