package wiki

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func jsonResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return textResponse(status, string(data))
}

// searchBody builds an action=query&list=search payload for the given titles.
func searchBody(titles ...string) map[string]any {
	hits := make([]map[string]string, 0, len(titles))
	for _, title := range titles {
		hits = append(hits, map[string]string{
			"title":   title,
			"snippet": `<span class="searchmatch">` + title + `</span> article`,
		})
	}
	return map[string]any{
		"query": map[string]any{
			"searchinfo": map[string]int{"totalhits": len(titles)},
			"search":     hits,
		},
	}
}

// fakeWiki routes requests by the action parameter and counts calls.
type fakeWiki struct {
	search     func(*http.Request) (*http.Response, error)
	opensearch func(*http.Request) (*http.Response, error)

	searchCalls  atomic.Int32
	suggestCalls atomic.Int32
}

func (f *fakeWiki) client() *http.Client {
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Query().Get("action") {
		case "query":
			f.searchCalls.Add(1)
			return f.search(req)
		case "opensearch":
			f.suggestCalls.Add(1)
			if f.opensearch == nil {
				return textResponse(http.StatusOK, `["", [], [], []]`), nil
			}
			return f.opensearch(req)
		}
		return textResponse(http.StatusBadRequest, "unexpected action"), nil
	})}
}
