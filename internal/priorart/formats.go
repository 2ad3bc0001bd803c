package priorart

import (
	"regexp"
	"strings"
)

var patentNumberRe = regexp.MustCompile(`^([A-Z]{2})(\d{5,})([A-Z]\d?)?$`)

// GenerateReferenceFormats expands a free-form patent reference into an
// ordered, duplicate-free list of candidate formats for the lookup
// service. Examiners and practitioners write the same reference a dozen
// ways; the external API accepts exactly one of them.
func GenerateReferenceFormats(ref string) []string {
	original := strings.TrimSpace(ref)
	if original == "" {
		return nil
	}

	candidates := []string{original}

	// Hyphen-stripped goes right after the original: hyphenated input is
	// the most common miss and this variant usually resolves it.
	if strings.Contains(original, "-") {
		candidates = append(candidates, strings.ReplaceAll(original, "-", ""))
	}

	normalized := stripNonAlphanumeric(original)
	candidates = append(candidates, normalized)

	upper := strings.ToUpper(normalized)
	if m := patentNumberRe.FindStringSubmatch(upper); m != nil {
		country, number, kind := m[1], m[2], m[3]

		if kind != "" {
			candidates = append(candidates, country+"-"+number+"-"+kind)
		}
		candidates = append(candidates, number+kind)

		if country == "US" {
			if kind != "" {
				candidates = append(candidates, country+number)
			}
			candidates = append(candidates, country+" "+groupDigits(number))
		}
	}

	return dedupe(candidates)
}

func stripNonAlphanumeric(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		}
	}
	return string(out)
}

// groupDigits inserts comma separators every three digits from the right,
// matching the printed-publication style (9,876,543).
func groupDigits(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func dedupe(items []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
