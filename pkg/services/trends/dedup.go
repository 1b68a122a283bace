package trends

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

// NormalizeForDedup folds a title for identity comparison: decompose,
// strip combining marks, lowercase, trim. Internal whitespace runs are kept
// as-is, so titles differing only by doubled spaces stay distinct.
func NormalizeForDedup(text string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		text,
	)
	if err != nil {
		stripped = text
	}
	return strings.TrimSpace(strings.ToLower(stripped))
}

type dedupKey struct {
	term     string
	region   string
	category domain.Category
	title    string
}

// Deduplicate drops records whose identity key was already seen, keeping the
// first occurrence in input order. The dropped count is returned for logging.
func Deduplicate(records []domain.TrendRecord) ([]domain.TrendRecord, int) {
	seen := make(map[dedupKey]struct{}, len(records))
	unique := make([]domain.TrendRecord, 0, len(records))

	for _, r := range records {
		key := dedupKey{
			term:     strings.TrimSpace(strings.ToLower(r.Term)),
			region:   r.RegionCode,
			category: r.Category,
			title:    NormalizeForDedup(r.Title),
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}
	return unique, len(records) - len(unique)
}
