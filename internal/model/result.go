package model

import (
	"strings"
	"time"
)

// Method records how a research result was produced.
type Method string

const (
	MethodAPIAnalysis    Method = "api_analysis"
	MethodManualFallback Method = "manual_fallback"
	MethodBillingError   Method = "billing_error"
)

// Status classifies the outcome of one entity's research call.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusManualRequired Status = "manual_required"
	StatusBillingError   Status = "billing_error"
)

// RunState is the lifecycle of a research batch.
type RunState string

const (
	RunStateIdle            RunState = "idle"
	RunStateRunning         RunState = "running"
	RunStateCompleted       RunState = "completed"
	RunStateHaltedOnBilling RunState = "halted_on_billing"
)

// ExtractionRecord is the parsed output of the extraction model for one
// entity. A record exists for every researched entity; fallback and
// billing-error paths fill it with the matching field statuses.
type ExtractionRecord struct {
	BusinessName     string    `json:"business_name"`
	IndustryRelevant Relevance `json:"industry_relevant"`
	LocationRelevant Relevance `json:"location_relevant"`
	Phone            Field     `json:"phone"`
	Email            Field     `json:"email"`
	Website          Field     `json:"website"`
	Address          Field     `json:"address"`
	City             Field     `json:"city"`
	Description      Field     `json:"description"`
	Confidence       int       `json:"confidence"`
	RelevanceNotes   Field     `json:"relevance_notes"`
}

// EmailEligible reports whether the record's email address qualifies
// for the outreach campaign. The "@" check is deliberate: sentinel and
// junk values must never be selected even if a caller forces the
// campaign flag upstream.
func (r ExtractionRecord) EmailEligible() bool {
	return r.Email.IsFound() && strings.Contains(r.Email.Value, "@")
}

// ResearchResult is the immutable per-entity outcome appended to a
// batch's ordered result list.
type ResearchResult struct {
	Entity         Entity           `json:"entity"`
	Record         ExtractionRecord `json:"record"`
	RawResultCount int              `json:"total_sources"`
	ResearchedAt   time.Time        `json:"research_date"`
	Method         Method           `json:"method"`
	Status         Status           `json:"status"`
}

// Summary aggregates a batch's outcome counts.
type Summary struct {
	TotalProcessed int     `json:"total_processed"`
	Successful     int     `json:"successful"`
	ManualRequired int     `json:"manual_required"`
	BillingErrors  int     `json:"billing_errors"`
	SuccessRate    float64 `json:"success_rate"`
}

// Summarize tallies results into a Summary. SuccessRate is a percentage
// in [0,100] and is 0 for an empty batch.
func Summarize(results []ResearchResult) Summary {
	s := Summary{TotalProcessed: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Successful++
		case StatusManualRequired:
			s.ManualRequired++
		case StatusBillingError:
			s.BillingErrors++
		}
	}
	if s.TotalProcessed > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalProcessed) * 100
	}
	return s
}
