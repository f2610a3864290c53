// Package review pushes manual-fallback research results to a Notion
// database where researchers pick them up.
package review

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/pkg/notion"
)

const (
	titleProp     = "Business Name"
	defaultStatus = "Needs Research"
)

// Pusher queues manual-review entities in a Notion database.
type Pusher struct {
	client notion.Client
	dbID   string
}

// NewPusher creates a Pusher targeting the given database.
func NewPusher(client notion.Client, dbID string) *Pusher {
	return &Pusher{client: client, dbID: dbID}
}

// PushSummary reports one push operation.
type PushSummary struct {
	Pushed  int `json:"pushed"`
	Skipped int `json:"skipped"`
}

// Push creates one review page per manual-required result. Entities
// that already have a page with the same business name are skipped so
// repeated pushes of the same batch stay idempotent.
func (p *Pusher) Push(ctx context.Context, results []model.ResearchResult) (*PushSummary, error) {
	summary := &PushSummary{}

	for _, res := range results {
		if res.Status != model.StatusManualRequired {
			continue
		}

		name := res.Entity.Name
		existing, err := notion.QueryByTitle(ctx, p.client, p.dbID, titleProp, name)
		if err != nil {
			return summary, eris.Wrapf(err, "review: check existing page for %q", name)
		}
		if len(existing) > 0 {
			summary.Skipped++
			zap.L().Debug("review: page already queued", zap.String("business", name))
			continue
		}

		if _, err := p.client.CreatePage(ctx, p.pageRequest(res)); err != nil {
			return summary, eris.Wrapf(err, "review: create page for %q", name)
		}
		summary.Pushed++
		zap.L().Info("review: queued for manual research", zap.String("business", name))
	}

	zap.L().Info("review: push finished",
		zap.Int("pushed", summary.Pushed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (p *Pusher) pageRequest(res model.ResearchResult) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		titleProp: notionapi.TitleProperty{
			Title: richText(res.Entity.Name),
		},
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{Name: defaultStatus},
		},
	}
	if res.Entity.ExpectedCity != "" {
		props["Expected City"] = notionapi.RichTextProperty{RichText: richText(res.Entity.ExpectedCity)}
	}
	if res.Entity.ExpectedAddress != "" {
		props["Expected Address"] = notionapi.RichTextProperty{RichText: richText(res.Entity.ExpectedAddress)}
	}
	if notes := res.Record.RelevanceNotes; notes.IsFound() {
		props["Notes"] = notionapi.RichTextProperty{RichText: richText(notes.Value)}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(p.dbID),
		},
		Properties: props,
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}
