package research

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/pkg/tavily"
)

// Config controls per-entity research behavior.
type Config struct {
	MaxResultsPerQuery int
	SearchDepth        tavily.SearchDepth
	QueryDelay         time.Duration // minimum spacing between search calls
	PhoneRegion        string
}

// Researcher runs the full research pipeline for one entity: pooled
// search, model extraction, and outcome classification.
type Researcher struct {
	search   tavily.Client
	complete Completer
	cfg      Config
	limiter  *rate.Limiter
	parser   Parser
	now      func() time.Time
}

// New creates a Researcher.
func New(search tavily.Client, completer Completer, cfg Config) *Researcher {
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = 2
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = tavily.DepthAdvanced
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.QueryDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.QueryDelay), 1)
	}

	return &Researcher{
		search:   search,
		complete: completer,
		cfg:      cfg,
		limiter:  limiter,
		parser:   Parser{PhoneRegion: cfg.PhoneRegion},
		now:      time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (r *Researcher) WithNow(f func() time.Time) *Researcher {
	r.now = f
	return r
}

// Research runs the pipeline for one entity and classifies the outcome.
// It never returns an error: every failure mode maps to a result status,
// and StatusBillingError is the orchestrator's signal to halt the batch.
func (r *Researcher) Research(ctx context.Context, entity model.Entity) model.ResearchResult {
	log := zap.L().With(zap.String("business", entity.Name))

	pooled, err := r.pooledSearch(ctx, entity)
	if err != nil {
		log.Error("research: quota exhausted during search", zap.Error(err))
		return BillingErrorResult(entity, r.now())
	}
	if len(pooled) == 0 {
		log.Info("research: no search results, routing to manual fallback")
		return ManualFallbackResult(entity, r.now())
	}

	log.Debug("research: extracting from pooled results", zap.Int("results", len(pooled)))

	text, err := r.complete.Complete(ctx, BuildPrompt(entity, pooled))
	if err != nil {
		if IsQuotaExhausted(err) {
			log.Error("research: quota exhausted during extraction", zap.Error(err))
			return BillingErrorResult(entity, r.now())
		}
		log.Warn("research: extraction failed, routing to manual fallback", zap.Error(err))
		return ManualFallbackResult(entity, r.now())
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("research: empty completion, routing to manual fallback")
		return ManualFallbackResult(entity, r.now())
	}

	return model.ResearchResult{
		Entity:         entity,
		Record:         r.parser.Parse(entity.Name, text),
		RawResultCount: len(pooled),
		ResearchedAt:   r.now(),
		Method:         model.MethodAPIAnalysis,
		Status:         model.StatusSuccess,
	}
}

// pooledSearch concatenates the results of every query template for the
// entity. A failing query is logged and skipped; only quota exhaustion
// aborts the pool.
func (r *Researcher) pooledSearch(ctx context.Context, entity model.Entity) ([]tavily.SearchResult, error) {
	var pooled []tavily.SearchResult

	for _, query := range SearchQueries(entity.Name) {
		if err := r.limiter.Wait(ctx); err != nil {
			break
		}

		resp, err := r.search.Search(ctx, tavily.SearchRequest{
			Query:       query,
			MaxResults:  r.cfg.MaxResultsPerQuery,
			SearchDepth: r.cfg.SearchDepth,
		})
		if err != nil {
			if IsRateLimited(err) {
				zap.L().Warn("research: query rate limited, skipping", zap.String("query", query))
				continue
			}
			if IsQuotaExhausted(err) {
				return nil, &QuotaError{Err: err}
			}
			zap.L().Warn("research: query failed, skipping", zap.String("query", query), zap.Error(err))
			continue
		}

		pooled = append(pooled, resp.Results...)
	}

	return pooled, nil
}

// Probe verifies both providers before a batch starts, so missing keys
// or exhausted quotas fail fast instead of after the first entity.
func (r *Researcher) Probe(ctx context.Context) error {
	if _, err := r.complete.Complete(ctx, "Reply with the single word OK."); err != nil {
		if IsQuotaExhausted(err) {
			return &QuotaError{Err: err}
		}
		return eris.Wrap(err, "research: completion provider probe")
	}

	if _, err := r.search.Search(ctx, tavily.SearchRequest{Query: "test query", MaxResults: 1}); err != nil {
		if !IsRateLimited(err) && IsQuotaExhausted(err) {
			return &QuotaError{Err: err}
		}
		return eris.Wrap(err, "research: search provider probe")
	}

	return nil
}
