// Package export renders research results into the tabular formats the
// outreach team consumes.
package export

import (
	"strconv"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// Columns is the fixed output column order. Downstream spreadsheets and
// the email dispatcher both key on these headers, so the order is part
// of the contract.
var Columns = []string{
	"business_name",
	"industry_relevant",
	"location_relevant",
	"phone",
	"email",
	"website",
	"address",
	"city",
	"description",
	"confidence",
	"relevance_notes",
	"status",
	"total_sources",
	"research_date",
	"method",
	"expected_city",
	"expected_address",
	"email_campaign_selected",
}

const researchDateLayout = "2006-01-02 15:04:05"

// Row flattens one result into export cell values, in Columns order.
// Field sentinels are rendered here and nowhere else.
func Row(res model.ResearchResult) []string {
	rec := res.Record

	name := rec.BusinessName
	if name == "" {
		name = res.Entity.Name
	}

	selected := "NO"
	if rec.EmailEligible() {
		selected = "YES"
	}

	return []string{
		name,
		string(rec.IndustryRelevant),
		string(rec.LocationRelevant),
		rec.Phone.Export(),
		rec.Email.Export(),
		rec.Website.Export(),
		rec.Address.Export(),
		rec.City.Export(),
		rec.Description.Export(),
		strconv.Itoa(rec.Confidence),
		rec.RelevanceNotes.Export(),
		string(res.Status),
		strconv.Itoa(res.RawResultCount),
		res.ResearchedAt.Format(researchDateLayout),
		string(res.Method),
		res.Entity.ExpectedCity,
		res.Entity.ExpectedAddress,
		selected,
	}
}

// Rows renders a full batch, preserving result order.
func Rows(results []model.ResearchResult) [][]string {
	out := make([][]string, 0, len(results))
	for _, res := range results {
		out = append(out, Row(res))
	}
	return out
}
