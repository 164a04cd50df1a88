package attendance

import "strings"

// NormalizeNames trims every name, drops blanks and rejects duplicates.
// Order is preserved.
func NormalizeNames(field string, names []string) ([]string, error) {
	var verr ValidationError
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			verr.add(field, "duplicate name "+n)
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}
