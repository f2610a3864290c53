package research

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/pkg/tavily"
)

type stubSearch struct {
	fn func(req tavily.SearchRequest) (*tavily.SearchResponse, error)
}

func (s stubSearch) Search(_ context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error) {
	return s.fn(req)
}

type stubCompleter struct {
	fn func(prompt string) (string, error)
}

func (s stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return s.fn(prompt)
}

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestResearcher(search stubSearch, completer stubCompleter) *Researcher {
	return New(search, completer, Config{}).WithNow(func() time.Time { return fixedNow })
}

func oneResult(title string) *tavily.SearchResponse {
	return &tavily.SearchResponse{
		Results: []tavily.SearchResult{{Title: title, URL: "https://x.example", Content: "acme@woodco.com"}},
	}
}

func TestResearchSuccess(t *testing.T) {
	var queries []string
	search := stubSearch{fn: func(req tavily.SearchRequest) (*tavily.SearchResponse, error) {
		queries = append(queries, req.Query)
		return oneResult("Acme Wood Co"), nil
	}}
	completer := stubCompleter{fn: func(prompt string) (string, error) {
		assert.Contains(t, prompt, `"Acme Wood Co"`)
		assert.Contains(t, prompt, "Expected City: Austin")
		return "INDUSTRY_RELEVANT: YES\nLOCATION_RELEVANT: YES\nEMAIL: acme@woodco.com\nCONFIDENCE: 7\n", nil
	}}

	r := newTestResearcher(search, completer)
	res := r.Research(context.Background(), model.Entity{Name: "Acme Wood Co", ExpectedCity: "Austin"})

	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, model.MethodAPIAnalysis, res.Method)
	assert.Equal(t, 4, res.RawResultCount)
	assert.Equal(t, fixedNow, res.ResearchedAt)
	assert.Equal(t, "acme@woodco.com", res.Record.Email.Value)
	assert.True(t, res.Record.EmailEligible())
	require.Len(t, queries, 4)
	assert.Contains(t, queries[0], "Acme Wood Co")
}

func TestResearchNoResults(t *testing.T) {
	search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		return &tavily.SearchResponse{}, nil
	}}
	completer := stubCompleter{fn: func(string) (string, error) {
		t.Fatal("completer must not be called without pooled results")
		return "", nil
	}}

	res := newTestResearcher(search, completer).Research(context.Background(), model.Entity{Name: "Ghost Traders"})

	assert.Equal(t, model.StatusManualRequired, res.Status)
	assert.Equal(t, model.MethodManualFallback, res.Method)
	assert.Equal(t, 0, res.RawResultCount)
	assert.Equal(t, model.PendingReview(), res.Record.Email)
	assert.Equal(t, 1, res.Record.Confidence)
}

func TestResearchFailedQueriesAreSkipped(t *testing.T) {
	calls := 0
	search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		calls++
		if calls < 4 {
			return nil, eris.New("tavily: unexpected status 500: boom")
		}
		return oneResult("only hit"), nil
	}}
	completer := stubCompleter{fn: func(string) (string, error) {
		return "INDUSTRY_RELEVANT: YES\nEMAIL: late@hit.com\n", nil
	}}

	res := newTestResearcher(search, completer).Research(context.Background(), model.Entity{Name: "Acme"})

	assert.Equal(t, 4, calls)
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.RawResultCount)
}

func TestResearchSearchQuotaHaltsEntity(t *testing.T) {
	search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		return nil, eris.New("tavily: unexpected status 432: quota exceeded for plan")
	}}
	completer := stubCompleter{fn: func(string) (string, error) {
		t.Fatal("completer must not be called on quota exhaustion")
		return "", nil
	}}

	res := newTestResearcher(search, completer).Research(context.Background(), model.Entity{Name: "Acme"})

	assert.Equal(t, model.StatusBillingError, res.Status)
	assert.Equal(t, model.MethodBillingError, res.Method)
	assert.Equal(t, model.ProviderError(), res.Record.Email)
	assert.Equal(t, 0, res.Record.Confidence)
}

func TestResearchRateLimitedQueryIsNotQuota(t *testing.T) {
	calls := 0
	search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		calls++
		if calls == 1 {
			return nil, eris.Wrap(tavily.ErrRateLimited, "query 1")
		}
		return oneResult("hit"), nil
	}}
	completer := stubCompleter{fn: func(string) (string, error) {
		return "INDUSTRY_RELEVANT: YES\n", nil
	}}

	res := newTestResearcher(search, completer).Research(context.Background(), model.Entity{Name: "Acme"})

	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, 3, res.RawResultCount)
}

func TestResearchExtractionQuota(t *testing.T) {
	search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		return oneResult("hit"), nil
	}}
	completer := stubCompleter{fn: func(string) (string, error) {
		return "", eris.New("groq: unexpected status 402: billing hard limit reached")
	}}

	res := newTestResearcher(search, completer).Research(context.Background(), model.Entity{Name: "Acme"})

	assert.Equal(t, model.StatusBillingError, res.Status)
}

func TestResearchExtractionFailureFallsBack(t *testing.T) {
	search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		return oneResult("hit"), nil
	}}

	tests := []struct {
		name string
		fn   func(string) (string, error)
	}{
		{"transient_error", func(string) (string, error) {
			return "", eris.New("groq: unexpected status 503: overloaded")
		}},
		{"empty_completion", func(string) (string, error) {
			return "   \n", nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestResearcher(search, stubCompleter{fn: tt.fn}).Research(context.Background(), model.Entity{Name: "Acme"})
			assert.Equal(t, model.StatusManualRequired, res.Status)
			assert.Equal(t, model.MethodManualFallback, res.Method)
		})
	}
}

func TestProbe(t *testing.T) {
	okSearch := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
		return oneResult("ok"), nil
	}}
	okCompleter := stubCompleter{fn: func(string) (string, error) { return "OK", nil }}

	t.Run("both_working", func(t *testing.T) {
		assert.NoError(t, newTestResearcher(okSearch, okCompleter).Probe(context.Background()))
	})

	t.Run("completion_quota", func(t *testing.T) {
		completer := stubCompleter{fn: func(string) (string, error) {
			return "", eris.New("billing hard limit reached")
		}}
		err := newTestResearcher(okSearch, completer).Probe(context.Background())
		require.Error(t, err)
		assert.True(t, IsQuotaExhausted(err))
	})

	t.Run("search_down", func(t *testing.T) {
		search := stubSearch{fn: func(tavily.SearchRequest) (*tavily.SearchResponse, error) {
			return nil, eris.New("tavily: unexpected status 500: down")
		}}
		err := newTestResearcher(search, okCompleter).Probe(context.Background())
		require.Error(t, err)
		assert.False(t, IsQuotaExhausted(err))
	})
}
