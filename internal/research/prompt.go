package research

import (
	"fmt"
	"strings"

	"github.com/timberline-data/enrich-cli/internal/model"
	"github.com/timberline-data/enrich-cli/pkg/tavily"
)

const (
	// maxPromptResults caps how many pooled results reach the model.
	maxPromptResults = 6
	// maxResultContentLen truncates each result's content in the prompt.
	maxResultContentLen = 400
)

// BuildPrompt assembles the extraction prompt for one entity from its
// pooled search results. The field names and strict rules are part of
// the wire contract with the model: the parser scans the response for
// exactly these prefixes.
func BuildPrompt(entity model.Entity, results []tavily.SearchResult) string {
	var b strings.Builder

	b.WriteString("You are analyzing search results for businesses related to TEAK, WOOD, TIMBER, LUMBER, and PLYWOOD industries.\n\n")
	fmt.Fprintf(&b, "BUSINESS TO RESEARCH: %q\n\n", entity.Name)

	if entity.ExpectedCity != "" || entity.ExpectedAddress != "" {
		b.WriteString("EXPECTED LOCATION FROM INPUT DATA:\n")
		fmt.Fprintf(&b, "Expected City: %s\n", orNotProvided(entity.ExpectedCity))
		fmt.Fprintf(&b, "Expected Address: %s\n\n", orNotProvided(entity.ExpectedAddress))
		b.WriteString("LOCATION VERIFICATION REQUIRED:\n")
		b.WriteString("You must verify if the business address/city found in search results matches or is relevant to the expected location above.\n\n")
	}

	b.WriteString("SEARCH RESULTS:\n")
	for i, r := range results {
		if i >= maxPromptResults {
			break
		}
		fmt.Fprintf(&b, "RESULT %d:\nTitle: %s\nURL: %s\nContent: %s\n\n",
			i+1, orNone(r.Title, "No title"), orNone(r.URL, "No URL"), truncate(r.Content, maxResultContentLen))
	}

	b.WriteString(`INSTRUCTIONS:
1. FOCUS: Only analyze if this business is related to teak, wood, timber, lumber, plywood, or wooden products industry
2. LOCATION VERIFICATION: If expected city/address is provided, verify if found business location matches
3. EXTRACT: Complete business information

EXTRACT AND FORMAT:
`)
	fmt.Fprintf(&b, "BUSINESS_NAME: %s\n", entity.Name)
	b.WriteString(`INDUSTRY_RELEVANT: [YES/NO - Is this business related to wood, timber, teak, lumber, plywood industry?]
LOCATION_RELEVANT: [YES/NO/UNKNOWN - Does the found address match expected city/address?]
PHONE: [extract phone number if found and business is relevant, or "Not found"]
EMAIL: [extract email address if found and business is relevant, or "Not found"]
WEBSITE: [extract official website URL if found and business is relevant, or "Not found"]
ADDRESS: [extract business address if found and business is relevant, or "Not found"]
CITY: [extract city from address if found, or "Not found"]
DESCRIPTION: [brief description focusing on wood/timber business activities]
CONFIDENCE: [rate 1-10 based on quality and number of sources]
RELEVANCE_NOTES: [explain industry relevance, location match, and source quality]

STRICT RULES:
1. Only extract information if INDUSTRY_RELEVANT = YES
2. Only extract information if LOCATION_RELEVANT = YES or UNKNOWN
3. If business is not wood/timber related, set all contact fields to "Not relevant - not wood/timber business"
4. If location doesn't match expected city/address, set all contact fields to "Not relevant - location mismatch"

Format your response exactly as shown above with the field names.
`)

	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func orNotProvided(s string) string {
	return orNone(s, "Not provided")
}

func orNone(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
