package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/timberline-data/enrich-cli/internal/model"
)

func sampleResult() model.ResearchResult {
	return model.ResearchResult{
		Entity: model.Entity{
			Name:            "Alpha Timber Co",
			ExpectedCity:    "Portland",
			ExpectedAddress: "12 Mill Rd",
		},
		Record: model.ExtractionRecord{
			BusinessName:     "Alpha Timber Co",
			IndustryRelevant: model.RelevanceYes,
			LocationRelevant: model.RelevanceUnknown,
			Phone:            model.Found("+1 503-555-0100"),
			Email:            model.Found("sales@alphatimber.com"),
			Website:          model.NotFound(),
			Address:          model.Found("12 Mill Rd"),
			City:             model.Found("Portland"),
			Description:      model.Found("Hardwood supplier"),
			Confidence:       8,
			RelevanceNotes:   model.Found("Sells teak decking"),
		},
		RawResultCount: 5,
		ResearchedAt:   time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Method:         model.MethodAPIAnalysis,
		Status:         model.StatusSuccess,
	}
}

func TestRowSuccess(t *testing.T) {
	row := Row(sampleResult())
	require.Len(t, row, len(Columns))

	got := map[string]string{}
	for i, col := range Columns {
		got[col] = row[i]
	}

	assert.Equal(t, "Alpha Timber Co", got["business_name"])
	assert.Equal(t, "YES", got["industry_relevant"])
	assert.Equal(t, "UNKNOWN", got["location_relevant"])
	assert.Equal(t, "sales@alphatimber.com", got["email"])
	assert.Equal(t, "Not found", got["website"])
	assert.Equal(t, "8", got["confidence"])
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "5", got["total_sources"])
	assert.Equal(t, "2025-06-01 09:30:00", got["research_date"])
	assert.Equal(t, "api_analysis", got["method"])
	assert.Equal(t, "Portland", got["expected_city"])
	assert.Equal(t, "YES", got["email_campaign_selected"])
}

func TestRowSentinels(t *testing.T) {
	tests := []struct {
		name      string
		email     model.Field
		wantEmail string
		wantFlag  string
	}{
		{"pending review", model.PendingReview(), "Research required", "NO"},
		{"provider error", model.ProviderError(), "API billing error", "NO"},
		{"not found", model.NotFound(), "Not found", "NO"},
		{"found without at-sign", model.Found("no-email-listed"), "no-email-listed", "NO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sampleResult()
			res.Record.Email = tt.email
			row := Row(res)

			idx := map[string]int{}
			for i, col := range Columns {
				idx[col] = i
			}
			assert.Equal(t, tt.wantEmail, row[idx["email"]])
			assert.Equal(t, tt.wantFlag, row[idx["email_campaign_selected"]])
		})
	}
}

func TestRowFallsBackToEntityName(t *testing.T) {
	res := sampleResult()
	res.Record.BusinessName = ""
	row := Row(res)
	assert.Equal(t, "Alpha Timber Co", row[0])
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	results := []model.ResearchResult{sampleResult(), sampleResult()}

	require.NoError(t, WriteCSV(path, results))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Alpha Timber Co", rows[1][0])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteXLSX(path, []model.ResearchResult{sampleResult()}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	sheet, ok := f.Sheet[resultsSheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)

	assert.Equal(t, "business_name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Alpha Timber Co", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "YES", sheet.Rows[1].Cells[len(Columns)-1].String())
}
