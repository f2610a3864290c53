package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/timberline-data/enrich-cli/internal/pipeline"
	"github.com/timberline-data/enrich-cli/internal/research"
	"github.com/timberline-data/enrich-cli/internal/store"
	anthropicpkg "github.com/timberline-data/enrich-cli/pkg/anthropic"
	"github.com/timberline-data/enrich-cli/pkg/groq"
	"github.com/timberline-data/enrich-cli/pkg/tavily"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "enrich.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes and migrates the store in one step.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initResearcher builds the search client, the configured extraction
// backend, and the per-entity researcher.
func initResearcher() (*research.Researcher, error) {
	if err := cfg.ValidateResearch(); err != nil {
		return nil, err
	}

	searchClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))

	var completer research.Completer
	switch cfg.Research.Provider {
	case "", "groq":
		completer = research.GroqCompleter{
			Client:      groq.NewClient(cfg.Groq.Key, groq.WithBaseURL(cfg.Groq.BaseURL)),
			Model:       cfg.Groq.Model,
			MaxTokens:   cfg.Research.MaxTokens,
			Temperature: cfg.Research.Temperature,
		}
	case "anthropic":
		completer = research.AnthropicCompleter{
			Client:      anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithModel(cfg.Anthropic.Model)),
			Model:       cfg.Anthropic.Model,
			MaxTokens:   int64(cfg.Research.MaxTokens),
			Temperature: cfg.Research.Temperature,
		}
	}

	return research.New(searchClient, completer, research.Config{
		MaxResultsPerQuery: cfg.Research.MaxResultsPerQuery,
		SearchDepth:        tavily.SearchDepth(cfg.Research.SearchDepth),
		QueryDelay:         time.Duration(cfg.Research.QueryDelaySecs) * time.Second,
		PhoneRegion:        cfg.Research.PhoneRegion,
	}), nil
}

// initRunner wires the researcher and store into a batch runner.
func initRunner(ctx context.Context) (*pipeline.Runner, store.Store, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	researcher, err := initResearcher()
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	delay := time.Duration(cfg.Research.EntityDelaySecs) * time.Second
	return pipeline.NewRunner(researcher, st, delay), st, nil
}
