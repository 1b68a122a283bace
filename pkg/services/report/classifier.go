package report

import (
	"sort"
	"strings"
	"time"

	"github.com/de-tools/trend-radar/pkg/models/domain"
	"github.com/de-tools/trend-radar/pkg/services/trends"
)

// Generator classifies a run's deduplicated records into the four report
// partitions.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// group accumulates every record that collapsed into one base name.
type group struct {
	key        string
	titles     []string
	categories []domain.Category
	regions    []string
	values     []string
	links      []string
	versions   []string
	isRising   bool
}

// Generate builds a ContentReport from fetched records. The group label is
// carried through to the rendered headers; empty means a full run.
func (g *Generator) Generate(records []domain.TrendRecord, groupLabel string) *domain.ContentReport {
	report := &domain.ContentReport{
		GeneratedAt: g.now().UTC().Format("2006-01-02 15:04 UTC"),
		Group:       groupLabel,
	}
	if len(records) == 0 {
		return report
	}

	report.Regions = uniqueSorted(regionCodes(records))

	// First pass: group by version-stripped base name, so "terraria 1.4.5"
	// and "terraria 1.4 5" land in one bucket.
	byName := make(map[string]*group)
	var order []*group

	for _, record := range records {
		base := baseName(record.Title)
		key := trends.NormalizeForDedup(normalizeTerm(base))

		grp, ok := byName[key]
		if !ok {
			grp = &group{key: key}
			byName[key] = grp
			order = append(order, grp)
		}

		grp.titles = append(grp.titles, record.Title)
		grp.categories = append(grp.categories, record.Category)
		grp.regions = append(grp.regions, record.RegionCode)
		grp.values = append(grp.values, record.Value)
		grp.links = append(grp.links, record.Link)
		if version := extractVersion(record.Title); version != "" {
			grp.versions = append(grp.versions, version)
		}
		if strings.Contains(string(record.Category), "rising") {
			grp.isRising = true
		}
	}

	for _, grp := range order {
		entry := g.buildEntry(grp)

		// Priority order preserved from observed behavior: technical, then
		// generic, then watchlist, then candidate.
		switch {
		case isTechnicalTerm(grp.key):
			report.TechnicalNoise = append(report.TechnicalNoise, entry)
		case isGenericTerm(grp.key):
			report.GenericNoise = append(report.GenericNoise, entry)
		case entry.NeedsReview:
			report.Watchlist = append(report.Watchlist, entry)
		default:
			report.NewCandidates = append(report.NewCandidates, entry)
		}
	}

	sortEntries(report.NewCandidates)
	sortEntries(report.Watchlist)
	sortEntries(report.GenericNoise)
	sortEntries(report.TechnicalNoise)

	report.TotalItems = len(records)
	report.UniqueTerms = len(order)
	return report
}

func (g *Generator) buildEntry(grp *group) domain.ReportEntry {
	// Best value: strict > while scanning in input order, so of two raw
	// strings parsing to the same magnitude the first seen wins.
	bestValue := "0"
	bestParsed := 0
	isRising := grp.isRising
	for _, raw := range grp.values {
		parsed, rising := ParseValue(raw)
		if parsed > bestParsed {
			bestParsed = parsed
			bestValue = raw
		}
		if rising {
			isRising = true
		}
	}

	needsReview, reason := checkWatchlist(grp.key)

	return domain.ReportEntry{
		Name:         displayNameForGroup(grp.titles),
		SourceTitles: uniqueInOrder(grp.titles),
		Category:     primaryCategory(grp.categories),
		Regions:      uniqueInOrder(grp.regions),
		BestValue:    bestValue,
		IsRising:     isRising,
		Links:        uniqueInOrder(grp.links),
		Versions:     uniqueInOrder(grp.versions),
		NeedsReview:  needsReview,
		ReviewReason: reason,
	}
}

// baseName strips generic suffixes, localized "free" tails and trailing
// version fragments, in that order.
func baseName(title string) string {
	name := strings.TrimSpace(strings.ToLower(title))

	for _, suffix := range genericSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	for _, pattern := range trailingFreePatterns {
		name = pattern.ReplaceAllString(name, "")
	}
	for _, pattern := range trailingVersionPatterns {
		name = pattern.ReplaceAllString(name, "")
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
}

// normalizeTerm folds a name for grouping: lowercase, collapsed whitespace,
// generic suffixes re-stripped.
func normalizeTerm(name string) string {
	normalized := whitespaceRun.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), " ")
	for _, suffix := range genericSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			normalized = strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
		}
	}
	return normalized
}

func extractVersion(title string) string {
	lower := strings.ToLower(title)
	for _, pattern := range versionPatterns {
		if match := pattern.FindStringSubmatch(lower); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

// displayNameForGroup picks the most frequent base-name variant (ties broken
// by first appearance) and formats it for humans.
func displayNameForGroup(titles []string) string {
	if len(titles) == 0 {
		return "Unknown"
	}

	counts := make(map[string]int)
	var seen []string
	for _, title := range titles {
		base := baseName(title)
		if _, ok := counts[base]; !ok {
			seen = append(seen, base)
		}
		counts[base]++
	}

	best := seen[0]
	for _, base := range seen {
		if counts[base] > counts[best] {
			best = base
		}
	}
	if best == "" {
		best = strings.TrimSpace(titles[0])
	}
	return displayName(best)
}

// displayName capitalizes each word, preserving short all-caps tokens as
// acronyms ("VPN stays VPN, CAPCUT becomes Capcut").
func displayName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		if len(word) <= 3 && word == strings.ToUpper(word) && word != strings.ToLower(word) {
			continue
		}
		words[i] = capitalize(word)
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

func checkWatchlist(name string) (bool, string) {
	normalized := strings.TrimSpace(strings.ToLower(name))
	for _, pattern := range watchlistPatterns {
		if pattern.re.MatchString(normalized) {
			return true, pattern.reason
		}
	}
	return false, ""
}

func isGenericTerm(name string) bool {
	normalized := strings.TrimSpace(strings.ToLower(name))
	if _, ok := genericTerms[normalized]; ok {
		return true
	}
	for _, pattern := range genericPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	// One- and two-character leftovers carry no app identity.
	return len([]rune(normalized)) <= 2
}

func isTechnicalTerm(name string) bool {
	normalized := strings.TrimSpace(strings.ToLower(name))
	for _, pattern := range technicalPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

// primaryCategory prefers a rising category when the group saw one.
func primaryCategory(categories []domain.Category) domain.Category {
	if len(categories) == 0 {
		return ""
	}
	for _, c := range categories {
		if strings.Contains(string(c), "rising") {
			return c
		}
	}
	return categories[0]
}

// sortEntries orders a partition: rising first, then by descending parsed
// magnitude, then by descending region count.
func sortEntries(entries []domain.ReportEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsRising != entries[j].IsRising {
			return entries[i].IsRising
		}
		vi, _ := ParseValue(entries[i].BestValue)
		vj, _ := ParseValue(entries[j].BestValue)
		if vi != vj {
			return vi > vj
		}
		return len(entries[i].Regions) > len(entries[j].Regions)
	})
}

func regionCodes(records []domain.TrendRecord) []string {
	codes := make([]string, 0, len(records))
	for _, r := range records {
		codes = append(codes, r.RegionCode)
	}
	return codes
}

func uniqueInOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok || item == "" {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func uniqueSorted(items []string) []string {
	out := uniqueInOrder(items)
	sort.Strings(out)
	return out
}
