package research

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/timberline-data/enrich-cli/internal/model"
)

// Parser turns the model's fixed-field response text into a typed
// extraction record. It never fails: malformed or missing lines degrade
// to not-found fields so one sloppy completion cannot abort an entity.
type Parser struct {
	// PhoneRegion is the ISO 3166-1 region used to parse national-format
	// phone numbers ("IN", "US", ...). Empty means only numbers already
	// in international format are normalized.
	PhoneRegion string
}

// Parse scans the response line by line for the known field prefixes.
func (p Parser) Parse(businessName, text string) model.ExtractionRecord {
	lines := strings.Split(text, "\n")

	rec := model.ExtractionRecord{
		BusinessName:     businessName,
		IndustryRelevant: model.ParseRelevance(rawFieldValue(lines, "INDUSTRY_RELEVANT:")),
		LocationRelevant: model.ParseRelevance(rawFieldValue(lines, "LOCATION_RELEVANT:")),
		Phone:            fieldValue(lines, "PHONE:"),
		Email:            fieldValue(lines, "EMAIL:"),
		Website:          fieldValue(lines, "WEBSITE:"),
		Address:          fieldValue(lines, "ADDRESS:"),
		City:             fieldValue(lines, "CITY:"),
		Description:      fieldValue(lines, "DESCRIPTION:"),
		Confidence:       parseConfidence(rawFieldValue(lines, "CONFIDENCE:")),
		RelevanceNotes:   fieldValue(lines, "RELEVANCE_NOTES:"),
	}

	if name := rawFieldValue(lines, "BUSINESS_NAME:"); name != "" {
		rec.BusinessName = name
	}

	if rec.Phone.IsFound() {
		rec.Phone = model.Found(p.normalizePhone(rec.Phone.Value))
	}

	return rec
}

// rawFieldValue returns the text after the first line starting with the
// given prefix, or "" when the line is absent.
func rawFieldValue(lines []string, prefix string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
	}
	return ""
}

func fieldValue(lines []string, prefix string) model.Field {
	v := rawFieldValue(lines, prefix)
	if v == "" || strings.EqualFold(v, "Not found") {
		return model.NotFound()
	}
	return model.Found(v)
}

// parseConfidence tolerates whatever integer formatting the model picks
// ("8", "8/10", "[8]", "Confidence: 8 out of 10"). Anything without a
// leading integer counts as 0.
func parseConfidence(v string) int {
	v = strings.Trim(strings.TrimSpace(v), "[]")
	start := -1
	for i, r := range v {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0
	}
	end := start
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(v[start:end])
	if err != nil {
		return 0
	}
	return n
}

// normalizePhone reformats a parseable phone number to international
// format. Unparseable or invalid numbers pass through untouched; the
// extracted text is still useful to a human reviewer.
func (p Parser) normalizePhone(raw string) string {
	num, err := phonenumbers.Parse(raw, p.PhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
