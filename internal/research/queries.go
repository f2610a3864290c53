package research

import "fmt"

// queryTemplates are the fixed keyword suffixes applied to each entity
// name. Two to four queries per entity keeps result pools broad enough
// for extraction without blowing through the search quota.
var queryTemplates = []string{
	"%s wood timber teak contact information phone email",
	"%s lumber plywood business address website",
	"%s timber trading company official contact",
	"%s wood export import contact details",
}

// SearchQueries returns the keyworded queries for one entity.
func SearchQueries(businessName string) []string {
	out := make([]string, len(queryTemplates))
	for i, tmpl := range queryTemplates {
		out[i] = fmt.Sprintf(tmpl, businessName)
	}
	return out
}
