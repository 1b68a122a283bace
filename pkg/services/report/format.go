package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

// Truncation heads for the Slack rendering.
const (
	slackMaxCandidates = 15
	slackMaxWatchlist  = 10
	slackMaxGeneric    = 8
	slackMaxTechnical  = 5
)

const plainMaxGeneric = 10

// FormatPlain renders the report as plain text for logs and console output.
func FormatPlain(report *domain.ContentReport) string {
	var lines []string

	lines = append(lines, strings.Repeat("=", 60))
	lines = append(lines, fmt.Sprintf("TRENDS REPORT - %s", report.GeneratedAt))
	lines = append(lines, scopeLine(report))
	lines = append(lines, strings.Repeat("=", 60), "")

	if len(report.NewCandidates) > 0 {
		lines = append(lines, fmt.Sprintf("DETECTED APPS/TERMS (%d)", len(report.NewCandidates)))
		lines = append(lines, strings.Repeat("-", 40))
		for _, entry := range report.NewCandidates {
			marker := "[TOP]"
			if entry.IsRising {
				marker = "[RISING]"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", marker, entry.Name))
			lines = append(lines, fmt.Sprintf("      Regions: %s", strings.Join(entry.Regions, ", ")))
			lines = append(lines, fmt.Sprintf("      Value: %s", entry.BestValue))
			if len(entry.Links) > 0 {
				lines = append(lines, fmt.Sprintf("      Link: %s", entry.Links[0]))
			}
			lines = append(lines, "")
		}
	} else {
		lines = append(lines, "No relevant apps/terms detected", "")
	}

	if len(report.GenericNoise) > 0 {
		lines = append(lines, fmt.Sprintf("IGNORED GENERIC TERMS (%d)", len(report.GenericNoise)))
		lines = append(lines, strings.Repeat("-", 40))
		lines = append(lines, "  "+strings.Join(entryNames(report.GenericNoise, plainMaxGeneric), ", "))
		if extra := len(report.GenericNoise) - plainMaxGeneric; extra > 0 {
			lines = append(lines, fmt.Sprintf("  +%d more", extra))
		}
		lines = append(lines, "")
	}

	lines = append(lines, strings.Repeat("-", 40))
	lines = append(lines, fmt.Sprintf("Total processed: %d items", report.TotalItems))
	lines = append(lines, fmt.Sprintf("Unique terms: %d", report.UniqueTerms))
	lines = append(lines, strings.Repeat("=", 60))

	return strings.Join(lines, "\n")
}

// FormatSlack renders the report as Slack-flavored markup with emoji tags
// and truncated sections.
func FormatSlack(report *domain.ContentReport) string {
	var lines []string

	header := fmt.Sprintf("📊 *TRENDS REPORT - %s*", report.GeneratedAt)
	if report.Group != "" {
		header += fmt.Sprintf("\nGroup: `%s` (%s)", report.Group, strings.Join(report.Regions, ", "))
	} else {
		header += fmt.Sprintf("\nRegions: %s", strings.Join(report.Regions, ", "))
	}
	lines = append(lines, header, "")

	if len(report.NewCandidates) > 0 {
		lines = append(lines, fmt.Sprintf("🎯 *DETECTED APPS (%d)*", len(report.NewCandidates)))
		lines = append(lines, strings.Repeat("━", 30))
		for _, entry := range head(report.NewCandidates, slackMaxCandidates) {
			lines = append(lines, slackEntryLine(entry, true))
		}
		if extra := len(report.NewCandidates) - slackMaxCandidates; extra > 0 {
			lines = append(lines, fmt.Sprintf("  _+%d more_", extra))
		}
		lines = append(lines, "")
	}

	if len(report.Watchlist) > 0 {
		lines = append(lines, fmt.Sprintf("⚠️ *NEEDS REVIEW (%d)*", len(report.Watchlist)))
		lines = append(lines, strings.Repeat("━", 30))
		for _, entry := range head(report.Watchlist, slackMaxWatchlist) {
			line := slackEntryLine(entry, false)
			line += fmt.Sprintf("\n    ⚠️ _%s_", entry.ReviewReason)
			lines = append(lines, line)
		}
		if extra := len(report.Watchlist) - slackMaxWatchlist; extra > 0 {
			lines = append(lines, fmt.Sprintf("  _+%d more_", extra))
		}
		lines = append(lines, "")
	}

	if len(report.NewCandidates) == 0 && len(report.Watchlist) == 0 {
		lines = append(lines, "ℹ️ No relevant apps detected in this run", "")
	}

	lines = append(lines, strings.Repeat("─", 30))
	lines = append(lines, "*FILTERED*")
	if len(report.GenericNoise) > 0 {
		lines = append(lines, fmt.Sprintf("⏭️ Generic (%d): _%s_",
			len(report.GenericNoise), strings.Join(entryNames(report.GenericNoise, slackMaxGeneric), ", ")))
		if extra := len(report.GenericNoise) - slackMaxGeneric; extra > 0 {
			lines = append(lines, fmt.Sprintf("    _+%d more_", extra))
		}
	}
	if len(report.TechnicalNoise) > 0 {
		lines = append(lines, fmt.Sprintf("🔧 Technical (%d): _%s_",
			len(report.TechnicalNoise), strings.Join(entryNames(report.TechnicalNoise, slackMaxTechnical), ", ")))
		if extra := len(report.TechnicalNoise) - slackMaxTechnical; extra > 0 {
			lines = append(lines, fmt.Sprintf("    _+%d more_", extra))
		}
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("📊 Total: %d items → %d unique", report.TotalItems, report.UniqueTerms))

	return strings.Join(lines, "\n")
}

const sheetColumns = 6

// FormatSheetRows renders the report as a self-describing batch of
// fixed-width rows: section titles, header rows, data rows and blank
// separators. The destination tab needs no pre-existing header.
func FormatSheetRows(report *domain.ContentReport) [][]string {
	var rows [][]string

	rows = append(rows, sheetRow(fmt.Sprintf("TRENDS REPORT - %s", report.GeneratedAt)))
	if report.Group != "" {
		rows = append(rows, sheetRow(fmt.Sprintf("Group: %s - Regions: %s", report.Group, strings.Join(report.Regions, ", "))))
	} else {
		rows = append(rows, sheetRow(fmt.Sprintf("Regions: %s", strings.Join(report.Regions, ", "))))
	}
	rows = append(rows, sheetRow(""))

	if len(report.NewCandidates) > 0 {
		rows = append(rows, sheetRow(fmt.Sprintf("🎯 DETECTED APPS (%d)", len(report.NewCandidates))))
		rows = append(rows, []string{"App", "Type", "Regions", "Score", "Versions", "Link"})
		for _, entry := range report.NewCandidates {
			rows = append(rows, []string{
				entry.Name,
				entryType(entry),
				joinTruncated(entry.Regions, 5),
				entry.BestValue,
				strings.Join(head(entry.Versions, 3), ", "),
				firstOrEmpty(entry.Links),
			})
		}
		rows = append(rows, sheetRow(""))
	}

	if len(report.Watchlist) > 0 {
		rows = append(rows, sheetRow(fmt.Sprintf("⚠️ NEEDS REVIEW (%d)", len(report.Watchlist))))
		rows = append(rows, []string{"App", "Type", "Regions", "Score", "Reason", "Link"})
		for _, entry := range report.Watchlist {
			rows = append(rows, []string{
				entry.Name,
				entryType(entry),
				joinTruncated(entry.Regions, 3),
				entry.BestValue,
				entry.ReviewReason,
				firstOrEmpty(entry.Links),
			})
		}
		rows = append(rows, sheetRow(""))
	}

	rows = append(rows, sheetRow(strings.Repeat("─", 30)))
	rows = append(rows, sheetRow(fmt.Sprintf("Total processed: %d items → %d unique", report.TotalItems, report.UniqueTerms)))
	if len(report.GenericNoise) > 0 {
		rows = append(rows, sheetRow(fmt.Sprintf("Generic filtered (%d): %s",
			len(report.GenericNoise), strings.Join(entryNames(report.GenericNoise, slackMaxGeneric), ", "))))
	}

	return rows
}

func slackEntryLine(entry domain.ReportEntry, includeVersions bool) string {
	emoji, label := "📈", "Top"
	if entry.IsRising {
		emoji, label = "🔥", "Rising"
	}

	var value string
	switch {
	case strings.Contains(strings.ToLower(entry.BestValue), "breakout"):
		value = "🚀 Breakout"
	case strings.HasPrefix(entry.BestValue, "+"):
		value = entry.BestValue
	default:
		value = "Score: " + entry.BestValue
	}

	line := fmt.Sprintf("• %s *%s* - %s (%s) [%s]",
		emoji, entry.Name, label, joinTruncated(entry.Regions, 3), value)

	if includeVersions && len(entry.Versions) > 0 {
		versions := append([]string(nil), entry.Versions...)
		sort.Sort(sort.Reverse(sort.StringSlice(versions)))
		line += fmt.Sprintf("\n    ↳ _Trending versions: %s_", strings.Join(head(versions, 3), ", "))
	}
	return line
}

func entryType(entry domain.ReportEntry) string {
	if entry.IsRising {
		return "🔥 Rising"
	}
	return "📈 Top"
}

func scopeLine(report *domain.ContentReport) string {
	if report.Group != "" {
		return fmt.Sprintf("Group: %s (%s)", report.Group, strings.Join(report.Regions, ", "))
	}
	return fmt.Sprintf("Regions: %s", strings.Join(report.Regions, ", "))
}

func entryNames(entries []domain.ReportEntry, max int) []string {
	names := make([]string, 0, max)
	for _, entry := range head(entries, max) {
		names = append(names, entry.Name)
	}
	return names
}

func joinTruncated(items []string, max int) string {
	if len(items) > max {
		return strings.Join(items[:max], ", ") + "..."
	}
	return strings.Join(items, ", ")
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func firstOrEmpty(items []string) string {
	if len(items) > 0 {
		return items[0]
	}
	return ""
}

func sheetRow(first string) []string {
	row := make([]string, sheetColumns)
	row[0] = first
	return row
}
