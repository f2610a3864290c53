package model

import "strings"

// Entity is a single business to be researched, extracted from one row
// of the input table.
type Entity struct {
	Name            string `json:"name"`
	ExpectedCity    string `json:"expected_city,omitempty"`
	ExpectedAddress string `json:"expected_address,omitempty"`
}

// NormalizedName returns the identity key for deduplication: the trimmed
// business name. Identity is case-preserving, so names differing only in
// case are distinct entities.
func (e Entity) NormalizedName() string {
	return strings.TrimSpace(e.Name)
}

// DedupeEntities collapses entities with the same normalized name,
// keeping first-seen order and the first occurrence's city/address.
// Entities with empty names are dropped.
func DedupeEntities(entities []Entity) []Entity {
	seen := make(map[string]struct{}, len(entities))
	out := make([]Entity, 0, len(entities))

	for _, e := range entities {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		key := e.NormalizedName()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		e.ExpectedCity = strings.TrimSpace(e.ExpectedCity)
		e.ExpectedAddress = strings.TrimSpace(e.ExpectedAddress)
		out = append(out, e)
	}

	return out
}
