package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"

	"github.com/de-tools/trend-radar/pkg/adapters"
	"github.com/de-tools/trend-radar/pkg/models/domain"
	storemodels "github.com/de-tools/trend-radar/pkg/models/store"
	"github.com/de-tools/trend-radar/pkg/services/export"
	"github.com/de-tools/trend-radar/pkg/services/report"
	"github.com/de-tools/trend-radar/pkg/services/trends"
)

// Fetcher is the slice of the scraper the runner needs: one call per
// (term, region, widget) combination.
type Fetcher interface {
	FetchRelated(ctx context.Context, term string, region domain.Region) domain.FetchResult
	FetchTopics(ctx context.Context, term string, region domain.Region) domain.FetchResult
	FetchInterest(ctx context.Context, term string, region domain.Region) domain.FetchResult
}

// Backup is the local crash-recovery sink.
type Backup interface {
	Save(records []domain.TrendRecord, label string) string
	Cleanup(keepDays int)
}

// History archives exported batches locally. Optional; a nil history means
// the run keeps no local archive.
type History interface {
	BeginRun(ctx context.Context, runID string, group string) error
	Add(ctx context.Context, runID string, rows []storemodels.TrendRow) error
}

// Options select what a run fetches and which region group it covers.
type Options struct {
	IncludeTopics   bool
	IncludeInterest bool
	Group           string
}

// Metrics is the structured run summary written to the log directory.
type Metrics struct {
	Timestamp          string         `json:"timestamp"`
	Group              string         `json:"group"`
	DurationSeconds    int            `json:"duration_seconds"`
	TotalCombinations  int            `json:"total_combinations"`
	SuccessfulRequests int            `json:"successful_requests"`
	FailedRequests     int            `json:"failed_requests"`
	SuccessRate        float64        `json:"success_rate"`
	TotalScraped       int            `json:"total_scraped"`
	TotalExported      int            `json:"total_exported"`
	AppsDetected       int            `json:"apps_detected"`
	WatchlistDetected  int            `json:"watchlist_detected"`
	ErrorsByType       map[string]int `json:"errors_by_type"`
	ExportBySheet      map[string]int `json:"export_by_sheet"`
}

// failedCombination records one fetch that gave up after its retries.
type failedCombination struct {
	Term    string
	Region  string
	Country string
	Kind    string
	Error   domain.ErrorKind
}

// Runner drives a full monitoring cycle: fetch combination by combination,
// export and back up each batch as it lands, then classify and publish the
// report.
type Runner struct {
	cfg      *domain.Config
	fetcher  Fetcher
	exporter export.Exporter
	backup   Backup
	history  History
	reports  *report.Generator

	now      func() time.Time
	newRunID func(t time.Time) string
}

func NewRunner(cfg *domain.Config, fetcher Fetcher, exporter export.Exporter, backup Backup, history History) *Runner {
	return &Runner{
		cfg:      cfg,
		fetcher:  fetcher,
		exporter: exporter,
		backup:   backup,
		history:  history,
		reports:  report.NewGenerator(),
		now:      time.Now,
		newRunID: func(t time.Time) string { return "run_" + t.UTC().Format("20060102_150405") },
	}
}

// Run executes the monitoring cycle. The only error it returns is a failed
// sink connection; everything downstream degrades and continues.
func (r *Runner) Run(ctx context.Context, opts Options) (*Metrics, error) {
	logger := zerolog.Ctx(ctx)
	started := r.now()
	runID := r.newRunID(started)

	regions, err := r.cfg.RegionsForGroup(opts.Group)
	if err != nil {
		return nil, err
	}

	if err := r.exporter.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect export sink: %w", err)
	}

	if r.backup != nil {
		r.backup.Cleanup(r.cfg.Backup.KeepDays)
	}
	if r.history != nil {
		if err := r.history.BeginRun(ctx, runID, opts.Group); err != nil {
			logger.Warn().Err(err).Msg("failed to record run start, archive disabled for this run")
			r.history = nil
		}
	}

	codes := maps.Keys(regions)
	sort.Strings(codes)

	totalCombinations := 0
	for _, code := range codes {
		totalCombinations += len(r.cfg.TermsForRegion(code))
	}

	logger.Info().
		Str("run_id", runID).
		Str("group", groupLabel(opts.Group)).
		Bool("topics", opts.IncludeTopics).
		Bool("interest", opts.IncludeInterest).
		Int("combinations", totalCombinations).
		Int("regions", len(codes)).
		Msg("starting monitoring run")

	var (
		allRecords    []domain.TrendRecord
		failed        []failedCombination
		totalScraped  int
		totalExported int
		exportCounts  = make(map[string]int)
		current       int
	)

	for _, code := range codes {
		region := domain.Region{Code: code, Name: regions[code]}
		for _, term := range r.cfg.TermsForRegion(code) {
			current++
			logger.Info().
				Int("current", current).
				Int("total", totalCombinations).
				Str("term", term).
				Str("region", code).
				Msg("processing combination")

			var batch []domain.TrendRecord
			collect := func(kind string, result domain.FetchResult) {
				if result.Success {
					batch = append(batch, result.Records...)
					return
				}
				failed = append(failed, failedCombination{
					Term:    term,
					Region:  code,
					Country: region.Name,
					Kind:    kind,
					Error:   result.ErrorKind,
				})
			}

			collect("queries", r.fetcher.FetchRelated(ctx, term, region))
			if opts.IncludeTopics {
				collect("topics", r.fetcher.FetchTopics(ctx, term, region))
			}
			if opts.IncludeInterest {
				collect("interest", r.fetcher.FetchInterest(ctx, term, region))
			}

			if len(batch) == 0 {
				continue
			}
			totalScraped += len(batch)
			allRecords = append(allRecords, batch...)

			label := term + "_" + code
			if opts.Group != "" {
				label = opts.Group + "_" + label
			}

			counts, err := r.exporter.Export(ctx, batch)
			if err != nil {
				logger.Error().Err(err).Str("term", term).Str("region", code).Msg("export failed, saving emergency backup")
				if r.backup != nil {
					r.backup.Save(batch, "emergency_"+term+"_"+code)
				}
				continue
			}
			for tab, n := range counts {
				exportCounts[tab] += n
				totalExported += n
			}
			if r.backup != nil {
				r.backup.Save(batch, label)
			}
			r.archive(ctx, runID, batch)
		}
	}

	unique, dropped := trends.Deduplicate(allRecords)
	if dropped > 0 {
		logger.Info().Int("dropped", dropped).Msg("removed duplicate records before reporting")
	}

	r.summarizeFailures(ctx, failed, totalCombinations)

	contentReport := r.publishReport(ctx, unique, opts.Group)

	metrics := r.buildMetrics(started, opts.Group, totalCombinations, failed, totalScraped, totalExported, exportCounts, contentReport)
	r.writeMetrics(ctx, metrics)

	logger.Info().
		Int("scraped", totalScraped).
		Int("exported", totalExported).
		Int("failed", len(failed)).
		Msg("monitoring run complete")
	return metrics, nil
}

// Scrape fetches without exporting, for dry runs against the upstream.
func (r *Runner) Scrape(ctx context.Context, opts Options) ([]domain.TrendRecord, error) {
	logger := zerolog.Ctx(ctx)

	regions, err := r.cfg.RegionsForGroup(opts.Group)
	if err != nil {
		return nil, err
	}

	codes := maps.Keys(regions)
	sort.Strings(codes)

	var all []domain.TrendRecord
	for _, code := range codes {
		region := domain.Region{Code: code, Name: regions[code]}
		for _, term := range r.cfg.TermsForRegion(code) {
			results := []domain.FetchResult{r.fetcher.FetchRelated(ctx, term, region)}
			if opts.IncludeTopics {
				results = append(results, r.fetcher.FetchTopics(ctx, term, region))
			}
			if opts.IncludeInterest {
				results = append(results, r.fetcher.FetchInterest(ctx, term, region))
			}
			for _, res := range results {
				if res.Success {
					all = append(all, res.Records...)
				} else {
					logger.Error().
						Str("term", term).
						Str("region", code).
						Str("error_kind", string(res.ErrorKind)).
						Msg("fetch failed, continuing")
				}
			}
		}
	}

	unique, _ := trends.Deduplicate(all)

	byCategory := make(map[domain.Category]int)
	for _, record := range unique {
		byCategory[record.Category]++
	}
	for category, n := range byCategory {
		logger.Info().Str("category", string(category)).Int("records", n).Msg("scrape summary")
	}
	return unique, nil
}

func (r *Runner) archive(ctx context.Context, runID string, batch []domain.TrendRecord) {
	if r.history == nil {
		return
	}
	rows := make([]storemodels.TrendRow, 0, len(batch))
	for _, record := range batch {
		rows = append(rows, adapters.MapDomainRecordToStoreRow(runID, record))
	}
	if err := r.history.Add(ctx, runID, rows); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to archive batch")
	}
}

// summarizeFailures logs the failure breakdown and an advisory hint when one
// error kind dominates. Advisory only; it never changes control flow.
func (r *Runner) summarizeFailures(ctx context.Context, failed []failedCombination, total int) {
	logger := zerolog.Ctx(ctx)
	if len(failed) == 0 {
		logger.Info().Int("combinations", total).Msg("all fetches completed successfully")
		return
	}

	byKind := make(map[domain.ErrorKind]int)
	byCombination := make(map[string][]string)
	for _, f := range failed {
		byKind[f.Error]++
		key := f.Term + " - " + f.Region + " (" + f.Country + ")"
		byCombination[key] = append(byCombination[key], f.Kind)
	}

	for kind, n := range byKind {
		logger.Warn().Str("error_kind", string(kind)).Int("count", n).Msg("fetch failures by kind")
	}
	combos := maps.Keys(byCombination)
	sort.Strings(combos)
	for _, combo := range combos {
		logger.Warn().Str("combination", combo).Str("widgets", strings.Join(byCombination[combo], ", ")).Msg("failed combination")
	}

	switch {
	case byKind[domain.ErrorRateLimit]*2 > len(failed):
		logger.Warn().Msg("hint: majority rate-limited, raise rate_limit_seconds or split regions into more groups")
	case byKind[domain.ErrorNoData]*2 > len(failed):
		logger.Warn().Msg("hint: majority returned no data, review terms and regions for traffic")
	case byKind[domain.ErrorAuth] > 0:
		logger.Warn().Msg("hint: auth errors present, verify credentials and proxies")
	default:
		logger.Warn().Msg("hint: mixed failures, check the run log for details")
	}
}

// publishReport classifies the run's records and pushes the report to the
// log, a Slack-formatted file and a dedicated sheet tab. All three outputs
// degrade independently.
func (r *Runner) publishReport(ctx context.Context, records []domain.TrendRecord, group string) *domain.ContentReport {
	logger := zerolog.Ctx(ctx)

	contentReport := r.reports.Generate(records, group)
	if len(records) == 0 {
		return contentReport
	}

	logger.Info().Msg("\n" + report.FormatPlain(contentReport))

	if r.cfg.LogDir != "" {
		path := filepath.Join(r.cfg.LogDir, "report_"+r.now().UTC().Format("20060102_150405")+".txt")
		if err := os.MkdirAll(r.cfg.LogDir, 0o755); err != nil {
			logger.Warn().Err(err).Msg("failed to create log dir for report")
		} else if err := os.WriteFile(path, []byte(report.FormatSlack(contentReport)), 0o644); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to save report file")
		} else {
			logger.Info().Str("path", path).Msg("report saved")
		}
	}

	if len(contentReport.NewCandidates) > 0 || len(contentReport.Watchlist) > 0 {
		tab, err := r.exporter.ExportReport(ctx, report.FormatSheetRows(contentReport), r.now())
		if err != nil {
			logger.Warn().Err(err).Msg("failed to export report tab")
		} else {
			logger.Info().Str("tab", tab).Msg("report exported to sheet")
		}
	}

	return contentReport
}

func (r *Runner) buildMetrics(started time.Time, group string, total int, failed []failedCombination,
	scraped, exported int, exportCounts map[string]int, contentReport *domain.ContentReport) *Metrics {
	errorsByType := make(map[string]int)
	for _, f := range failed {
		errorsByType[string(f.Error)]++
	}

	successRate := 0.0
	if total > 0 {
		successRate = float64(total-len(failed)) / float64(total) * 100
	}

	return &Metrics{
		Timestamp:          started.UTC().Format(time.RFC3339),
		Group:              groupLabel(group),
		DurationSeconds:    int(r.now().Sub(started).Seconds()),
		TotalCombinations:  total,
		SuccessfulRequests: total - len(failed),
		FailedRequests:     len(failed),
		SuccessRate:        successRate,
		TotalScraped:       scraped,
		TotalExported:      exported,
		AppsDetected:       len(contentReport.NewCandidates),
		WatchlistDetected:  len(contentReport.Watchlist),
		ErrorsByType:       errorsByType,
		ExportBySheet:      exportCounts,
	}
}

func (r *Runner) writeMetrics(ctx context.Context, metrics *Metrics) {
	logger := zerolog.Ctx(ctx)

	payload, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		logger.Warn().Err(err).Msg("failed to marshal metrics")
		return
	}
	logger.Info().RawJSON("metrics", payload).Msg("run metrics")

	if r.cfg.LogDir == "" {
		return
	}
	if err := os.MkdirAll(r.cfg.LogDir, 0o755); err != nil {
		logger.Warn().Err(err).Msg("failed to create log dir for metrics")
		return
	}
	path := filepath.Join(r.cfg.LogDir, "metrics_"+r.now().UTC().Format("20060102_150405")+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to save metrics")
		return
	}
	logger.Info().Str("path", path).Msg("metrics saved")
}

func groupLabel(group string) string {
	if group == "" {
		return "all"
	}
	return group
}
