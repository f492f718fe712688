package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"madbot/internal/domain"
	"madbot/internal/usecase"
)

// runWikiRequest reads a wiki-request issue body from ISSUE_BODY (or stdin)
// and prints the matching entry for the wikis: list in config.yaml.
func runWikiRequest(stdin io.Reader, stdout io.Writer) error {
	body := os.Getenv("ISSUE_BODY")
	if body == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read issue body: %w", err)
		}
		body = string(data)
	}
	return writeWikiEntry(body, stdout)
}

func writeWikiEntry(body string, w io.Writer) error {
	entry, err := usecase.ParseWikiRequest(body)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal([]domain.WikiEntry{entry})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = w.Write(out)
	return err
}
