package canon

import (
	"encoding/json"
	"strings"
)

// Text folds s for case-insensitive matching: lower-cased, trimmed, and with
// inner whitespace runs collapsed to a single space.
func Text(s string) string {
	return collapseSpaces(strings.ToLower(s))
}

// Name trims a display value (city, district, station) without changing case.
func Name(s string) string {
	return collapseSpaces(s)
}

// Features trims, drops empties and de-duplicates a feature list, keeping the
// first occurrence order. Returns nil when nothing is left.
func Features(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, f := range in {
		f = collapseSpaces(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// SplitList splits comma separated values, as sent by query strings like
// feature=a,b&feature=c.
func SplitList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Images normalises the image_url column, which holds either a single URL or
// a JSON array of URLs. The first element is the cover.
func Images(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.HasPrefix(raw, "[") {
		return []string{raw}
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil
	}
	out := urls[:0]
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
