package resolver

import "strings"

// Extraction order (spec §4.3): query `version`, else query `v`; header
// `x-gati-version`, else `x-api-version`. Array-valued inputs use element
// 0. Empty/whitespace-only strings are treated as absent.

// Extract pulls the query-value and header-value preferences out of raw
// multi-valued query/header maps. Header keys are matched
// case-insensitively by the caller passing an already-lowercased map (see
// NormalizeHeaders).
func Extract(query map[string][]string, headers map[string][]string) (queryVal, headerVal string) {
	queryVal = firstNonEmpty(query, "version", "v")
	headerVal = firstNonEmpty(headers, "x-gati-version", "x-api-version")
	return queryVal, headerVal
}

func firstNonEmpty(values map[string][]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := values[k]; ok && len(v) > 0 {
			if s := strings.TrimSpace(v[0]); s != "" {
				return s
			}
		}
	}
	return ""
}

// NormalizeHeaders lowercases every header key so lookups in Extract are
// case-insensitive, per spec §6 ("HTTP headers recognized
// (case-insensitive)").
func NormalizeHeaders(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = v
	}
	return out
}
