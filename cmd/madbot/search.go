package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"madbot/internal/infra/config"
	"madbot/internal/infra/logger"
	"madbot/internal/usecase"
)

const (
	cliResultLimit = 5
	cliSnippetMax  = 120
)

// runSearch is "madbot search [wiki] QUERY": a one-shot lookup without any
// chat platform. Returns the process exit code.
func runSearch(args []string) int {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	reg, err := buildRegistry(cfg, logger.Discard())
	if err != nil {
		fmt.Fprintf(os.Stderr, "registry: %v\n", err)
		return 1
	}
	return searchCommand(context.Background(), reg, stripConfigFlag(args), os.Stdout)
}

func searchCommand(ctx context.Context, reg *usecase.Registry, args []string, w io.Writer) int {
	code, query := reg.SplitQuery(args)
	if query == "" {
		fmt.Fprintln(w, `Usage: madbot search "your search"`)
		fmt.Fprintln(w, `       madbot search [wiki] "search"  e.g. ma Voyager, sgc 1969`)
		fmt.Fprintln(w, "Wiki codes:", strings.Join(reg.Codes(), ", "))
		return 1
	}

	provider := reg.Resolve(code)
	fmt.Fprintf(w, "Searching %s for: \"%s\" (max %d results)\n\n", provider.Name(), query, cliResultLimit)

	resp := provider.Search(ctx, query, cliResultLimit)
	if resp.Error {
		fmt.Fprintln(w, "Error:", resp.Message)
		return 1
	}

	if len(resp.Results) == 0 {
		if resp.Message != "" {
			fmt.Fprintln(w, resp.Message)
		} else {
			fmt.Fprintln(w, "No results.")
		}
		if resp.Suggestion != "" {
			fmt.Fprintln(w, "Suggestion:", resp.Suggestion)
		}
		return 0
	}

	fmt.Fprintf(w, "Found %d result(s):\n\n", len(resp.Results))
	for _, r := range resp.Results {
		fmt.Fprintf(w, "  %s\n", r.Title)
		fmt.Fprintf(w, "  %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(w, "  %s\n", clip(r.Snippet, cliSnippetMax))
		}
		fmt.Fprintln(w)
	}
	return 0
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// stripConfigFlag removes --config PATH / --config=PATH from subcommand args.
func stripConfigFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config":
			i++
		case strings.HasPrefix(args[i], "--config="):
		default:
			out = append(out, args[i])
		}
	}
	return out
}
