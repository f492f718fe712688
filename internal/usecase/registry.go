package usecase

import (
	"fmt"
	"strings"

	"madbot/internal/domain"
)

// ProviderFactory builds the search backend for one registry entry.
type ProviderFactory func(entry domain.WikiEntry) domain.WikiProvider

// Choice is one option of the wiki selector shown by chat platforms.
type Choice struct {
	Label string
	Value string
}

// Registry maps wiki codes to providers. It is built once at startup and
// read-only afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	entries   []domain.WikiEntry
	providers map[string]domain.WikiProvider
	fallback  domain.WikiProvider
}

// NewRegistry creates one provider per entry. The first entry is the
// fallback for unknown codes.
func NewRegistry(entries []domain.WikiEntry, factory ProviderFactory) (*Registry, error) {
	if len(entries) == 0 {
		return nil, domain.NewDomainError("Registry.New", domain.ErrInvalidInput, "no wikis configured")
	}
	if factory == nil {
		return nil, domain.NewDomainError("Registry.New", domain.ErrInvalidInput, "nil provider factory")
	}

	r := &Registry{
		entries:   make([]domain.WikiEntry, 0, len(entries)),
		providers: make(map[string]domain.WikiProvider, len(entries)),
	}
	for i, e := range entries {
		code := domain.NormalizeCode(e.Code)
		if code == "" {
			return nil, domain.NewDomainError("Registry.New", domain.ErrInvalidInput,
				fmt.Sprintf("wikis[%d]: code is required", i))
		}
		if strings.TrimSpace(e.BaseURL) == "" {
			return nil, domain.NewDomainError("Registry.New", domain.ErrInvalidInput,
				fmt.Sprintf("wiki %q: base_url is required", code))
		}
		if _, dup := r.providers[code]; dup {
			return nil, domain.NewDomainError("Registry.New", domain.ErrDuplicate,
				fmt.Sprintf("wiki code %q", code))
		}

		e.Code = code
		p := factory(e)
		r.providers[code] = p
		r.entries = append(r.entries, e)
		if r.fallback == nil {
			r.fallback = p
		}
	}
	return r, nil
}

// Resolve returns the provider for code. Codes are matched case-insensitively
// and an unknown or empty code resolves to the first registered wiki.
func (r *Registry) Resolve(code string) domain.WikiProvider {
	if p, ok := r.providers[domain.NormalizeCode(code)]; ok {
		return p
	}
	return r.fallback
}

// Has reports whether code is registered.
func (r *Registry) Has(code string) bool {
	_, ok := r.providers[domain.NormalizeCode(code)]
	return ok
}

// Codes returns the registered codes in table order.
func (r *Registry) Codes() []string {
	codes := make([]string, len(r.entries))
	for i, e := range r.entries {
		codes[i] = e.Code
	}
	return codes
}

// Choices returns selector options labelled "<code> – <name>".
func (r *Registry) Choices() []Choice {
	choices := make([]Choice, len(r.entries))
	for i, e := range r.entries {
		choices[i] = Choice{Label: e.Code + " – " + e.Name, Value: e.Code}
	}
	return choices
}

// Entries returns a copy of the registry table.
func (r *Registry) Entries() []domain.WikiEntry {
	out := make([]domain.WikiEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// SplitQuery reads free-form command arguments: the first word selects a
// wiki only when it is a registered code, the rest is the query. code is ""
// when the default wiki applies.
func (r *Registry) SplitQuery(args []string) (code, query string) {
	if len(args) > 0 && r.Has(args[0]) {
		return domain.NormalizeCode(args[0]), strings.TrimSpace(strings.Join(args[1:], " "))
	}
	return "", strings.TrimSpace(strings.Join(args, " "))
}
