package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"madbot/internal/domain"
)

// Labels of the "new wiki" issue template, in the order they are reported.
var wikiRequestFields = []string{"Wiki code", "Display name", "Base URL", "Short label"}

var (
	markdownHeading = regexp.MustCompile(`^#{2,3}\s*(.*)$`)
	boldHeading     = regexp.MustCompile(`^\*\*([^*]+)\*\*`)
	nonCodeChars    = regexp.MustCompile(`[^a-z0-9]`)
)

// ParseWikiRequest extracts a registry entry from a wiki-request issue body.
// Both template styles are accepted: "## Wiki code" headings and issue-form
// "**Wiki code**" labels, each followed by the value on the next lines.
func ParseWikiRequest(body string) (domain.WikiEntry, error) {
	sections := splitSections(body)

	entry := domain.WikiEntry{
		Code:    nonCodeChars.ReplaceAllString(strings.ToLower(sections.get("Wiki code")), ""),
		Name:    sections.get("Display name"),
		BaseURL: strings.TrimRight(sections.get("Base URL"), "/"),
		Label:   sections.get("Short label"),
	}

	var missing []string
	for i, v := range []string{entry.Code, entry.Name, entry.BaseURL, entry.Label} {
		if v == "" {
			missing = append(missing, wikiRequestFields[i])
		}
	}
	if len(missing) > 0 {
		return entry, domain.NewDomainError("ParseWikiRequest", domain.ErrInvalidInput,
			fmt.Sprintf("missing field(s): %s", strings.Join(missing, ", ")))
	}
	return entry, nil
}

type section struct {
	heading string
	lines   []string
}

type issueSections []section

// get returns the whitespace-collapsed body of the first section whose
// heading starts with label, case-insensitively.
func (s issueSections) get(label string) string {
	want := strings.ToLower(label)
	for _, sec := range s {
		if !strings.HasPrefix(strings.ToLower(sec.heading), want) {
			continue
		}
		value := strings.Join(strings.Fields(strings.Join(sec.lines, " ")), " ")
		// Issue forms render optional empty answers this way.
		if value == "_No response_" {
			return ""
		}
		return value
	}
	return ""
}

func splitSections(body string) issueSections {
	var out issueSections
	var cur *section
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if m := markdownHeading.FindStringSubmatch(trimmed); m != nil {
			out = append(out, section{heading: strings.TrimSpace(m[1])})
			cur = &out[len(out)-1]
			continue
		}
		if m := boldHeading.FindStringSubmatch(trimmed); m != nil {
			out = append(out, section{heading: strings.TrimSpace(m[1])})
			cur = &out[len(out)-1]
			continue
		}
		if cur != nil {
			cur.lines = append(cur.lines, trimmed)
		}
	}
	return out
}
