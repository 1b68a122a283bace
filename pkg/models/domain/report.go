package domain

// ReportEntry is one grouped application candidate, keyed by the normalized
// base name (version suffixes stripped) of its source titles.
type ReportEntry struct {
	Name         string
	SourceTitles []string
	Category     Category
	Regions      []string
	BestValue    string
	IsRising     bool
	Links        []string
	Versions     []string
	NeedsReview  bool
	ReviewReason string
}

// ContentReport is the full classification of one run. The four partitions
// are disjoint and independently sorted.
type ContentReport struct {
	GeneratedAt string
	Group       string
	Regions     []string

	NewCandidates  []ReportEntry
	Watchlist      []ReportEntry
	GenericNoise   []ReportEntry
	TechnicalNoise []ReportEntry

	TotalItems  int
	UniqueTerms int
}
