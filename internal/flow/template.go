package flow

import "strings"

// ReplaceVariables substitutes every occurrence of {key} in template for each
// key present in data with a non-empty value. Keys that are absent or empty
// leave the literal {key} placeholder untouched, so an unrendered placeholder
// in output points at missing data rather than silently disappearing.
func ReplaceVariables(template string, data map[string]string) string {
	out := template
	for key, value := range data {
		if value == "" {
			continue
		}
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}
