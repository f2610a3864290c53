package research

import (
	"time"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// ManualFallbackResult builds the placeholder result for an entity whose
// automated research failed for a recoverable reason. A human completes
// the record later.
func ManualFallbackResult(entity model.Entity, at time.Time) model.ResearchResult {
	return model.ResearchResult{
		Entity: entity,
		Record: model.ExtractionRecord{
			BusinessName:     entity.Name,
			IndustryRelevant: model.RelevanceUnknown,
			LocationRelevant: model.RelevanceUnknown,
			Phone:            model.PendingReview(),
			Email:            model.PendingReview(),
			Website:          model.PendingReview(),
			Address:          model.PendingReview(),
			City:             model.PendingReview(),
			Description:      model.Found("Business - requires manual verification for wood/timber relevance"),
			Confidence:       1,
			RelevanceNotes:   model.Found("Automated research failed - manual verification needed"),
		},
		RawResultCount: 0,
		ResearchedAt:   at,
		Method:         model.MethodManualFallback,
		Status:         model.StatusManualRequired,
	}
}

// BillingErrorResult builds the terminal result recorded when provider
// quota exhaustion halts the batch at this entity.
func BillingErrorResult(entity model.Entity, at time.Time) model.ResearchResult {
	return model.ResearchResult{
		Entity: entity,
		Record: model.ExtractionRecord{
			BusinessName:     entity.Name,
			IndustryRelevant: model.RelevanceUnknown,
			LocationRelevant: model.RelevanceUnknown,
			Phone:            model.ProviderError(),
			Email:            model.ProviderError(),
			Website:          model.ProviderError(),
			Address:          model.ProviderError(),
			City:             model.ProviderError(),
			Description:      model.Found("Research stopped due to API billing/quota issue"),
			Confidence:       0,
			RelevanceNotes:   model.Found("Research was stopped due to API billing or quota limits"),
		},
		RawResultCount: 0,
		ResearchedAt:   at,
		Method:         model.MethodBillingError,
		Status:         model.StatusBillingError,
	}
}
