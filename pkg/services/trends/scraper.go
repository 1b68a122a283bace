package trends

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"

	"github.com/de-tools/trend-radar/pkg/models/domain"
	"github.com/de-tools/trend-radar/pkg/services/ratelimit"
)

// ScraperConfig wires the fetcher to its governor and session settings.
type ScraperConfig struct {
	Session      SessionConfig
	RateInterval time.Duration
	Retry        ratelimit.RetryConfig
}

// Scraper fetches trend records for (term, region) pairs. It owns the
// upstream session exclusively; a rate-limit retry discards it and builds a
// fresh one through newSession.
type Scraper struct {
	cfg     ScraperConfig
	limiter *ratelimit.Limiter
	retrier *ratelimit.Retrier

	session    *Session
	newSession func() *Session
	now        func() time.Time
}

func NewScraper(cfg ScraperConfig) *Scraper {
	s := &Scraper{
		cfg:     cfg,
		limiter: ratelimit.NewLimiter(cfg.RateInterval),
		retrier: ratelimit.NewRetrier(cfg.Retry),
		now:     time.Now,
	}
	s.newSession = func() *Session { return NewSession(cfg.Session) }
	s.session = s.newSession()
	return s
}

// Session exposes the current upstream session for health probes and tests.
func (s *Scraper) Session() *Session { return s.session }

func (s *Scraper) rebuildSession(ctx context.Context) error {
	s.session = s.newSession()
	zerolog.Ctx(ctx).Info().Str("user_agent", s.session.UserAgent()).Msg("rebuilt upstream session")
	return nil
}

// fetch runs op under the governor: payload rebuilt against the current
// session on every attempt, so the worldwide geo mapping holds after a
// retry-triggered session swap as well.
func (s *Scraper) fetch(ctx context.Context, term, geo string, op func() error) error {
	return s.retrier.Do(ctx, func() error {
		s.limiter.Wait(ctx)
		if err := s.session.BuildPayload(ctx, term, geo); err != nil {
			return err
		}
		return op()
	}, isRateLimit, func() error {
		return s.rebuildSession(ctx)
	})
}

// FetchRelated extracts the top and rising related search phrases for a
// term/region pair. Absent upstream data is a success with zero records.
func (s *Scraper) FetchRelated(ctx context.Context, term string, region domain.Region) domain.FetchResult {
	observed := s.now().UTC().Truncate(time.Second)

	var lists RankedLists
	err := s.fetch(ctx, term, region.Code, func() error {
		var err error
		lists, err = s.session.RelatedQueries(ctx)
		return err
	})
	if err != nil {
		return failure(ctx, "related queries", term, region, err)
	}

	result := domain.FetchResult{Success: true, ErrorKind: domain.ErrorNone}
	for _, item := range lists.Top {
		result.Records = append(result.Records, s.record(observed, term, region, domain.CategoryQueriesTop, item.Text, item.Value, item.Text))
	}
	for _, item := range lists.Rising {
		result.Records = append(result.Records, s.record(observed, term, region, domain.CategoryQueriesRising, item.Text, item.Value, item.Text))
	}
	zerolog.Ctx(ctx).Info().
		Str("term", term).
		Str("region", region.Code).
		Int("records", len(result.Records)).
		Msg("fetched related queries")
	return result
}

// FetchTopics extracts the top and rising related topics. The upstream
// widget is unstable: a malformed body is tolerated as an empty success,
// any other failure is classified normally.
func (s *Scraper) FetchTopics(ctx context.Context, term string, region domain.Region) domain.FetchResult {
	observed := s.now().UTC().Truncate(time.Second)

	var lists RankedLists
	err := s.fetch(ctx, term, region.Code, func() error {
		var err error
		lists, err = s.session.RelatedTopics(ctx)
		return err
	})
	if errors.Is(err, ErrMalformedResponse) {
		zerolog.Ctx(ctx).Warn().
			Str("term", term).
			Str("region", region.Code).
			Err(err).
			Msg("related topics malformed upstream, ignoring")
		return domain.FetchResult{Success: true, ErrorKind: domain.ErrorNone}
	}
	if err != nil {
		return failure(ctx, "related topics", term, region, err)
	}

	result := domain.FetchResult{Success: true, ErrorKind: domain.ErrorNone}
	for _, item := range lists.Top {
		result.Records = append(result.Records, s.record(observed, term, region, domain.CategoryTopicsTop, item.Text, item.Value, item.Mid))
	}
	for _, item := range lists.Rising {
		result.Records = append(result.Records, s.record(observed, term, region, domain.CategoryTopicsRising, item.Text, item.Value, item.Mid))
	}
	zerolog.Ctx(ctx).Info().
		Str("term", term).
		Str("region", region.Code).
		Int("records", len(result.Records)).
		Msg("fetched related topics")
	return result
}

// FetchInterest extracts the interest-over-time series: one record per time
// bucket, title holding the bucket timestamp.
func (s *Scraper) FetchInterest(ctx context.Context, term string, region domain.Region) domain.FetchResult {
	observed := s.now().UTC().Truncate(time.Second)

	var points []TimePoint
	err := s.fetch(ctx, term, region.Code, func() error {
		var err error
		points, err = s.session.InterestOverTime(ctx)
		return err
	})
	if err != nil {
		return failure(ctx, "interest over time", term, region, err)
	}

	result := domain.FetchResult{Success: true, ErrorKind: domain.ErrorNone}
	for _, point := range points {
		result.Records = append(result.Records, s.record(observed, term, region, domain.CategoryInterestOverTime, point.Time, point.Value, term))
	}
	zerolog.Ctx(ctx).Info().
		Str("term", term).
		Str("region", region.Code).
		Int("records", len(result.Records)).
		Msg("fetched interest over time")
	return result
}

// FetchAll walks every (term, region) combination sequentially: related
// queries always, topics and interest when enabled. Individual failures are
// logged and skipped; the accumulated records are deduplicated before
// returning.
func (s *Scraper) FetchAll(ctx context.Context, terms []string, regions map[string]string, includeTopics, includeInterest bool) []domain.TrendRecord {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Int("terms", len(terms)).
		Int("regions", len(regions)).
		Msg("starting full fetch")

	codes := maps.Keys(regions)
	sort.Strings(codes)

	var all []domain.TrendRecord
	for _, term := range terms {
		for _, code := range codes {
			region := domain.Region{Code: code, Name: regions[code]}

			results := []domain.FetchResult{s.FetchRelated(ctx, term, region)}
			if includeTopics {
				results = append(results, s.FetchTopics(ctx, term, region))
			}
			if includeInterest {
				results = append(results, s.FetchInterest(ctx, term, region))
			}

			for _, res := range results {
				if res.Success {
					all = append(all, res.Records...)
				} else {
					logger.Error().
						Str("term", term).
						Str("region", code).
						Str("error_kind", string(res.ErrorKind)).
						Str("error", res.ErrorMessage).
						Msg("fetch failed, continuing")
				}
			}
		}
	}

	unique, dropped := Deduplicate(all)
	if dropped > 0 {
		logger.Info().Int("dropped", dropped).Msg("removed duplicate records")
	}
	logger.Info().Int("records", len(unique)).Msg("full fetch complete")
	return unique
}

func (s *Scraper) record(observed time.Time, term string, region domain.Region, category domain.Category, title, value, linkQuery string) domain.TrendRecord {
	return domain.TrendRecord{
		ObservedAt: observed,
		Term:       term,
		RegionCode: region.Code,
		RegionName: region.Name,
		Category:   category,
		Title:      title,
		Value:      value,
		Link:       s.exploreLink(linkQuery, region.Code),
	}
}

// exploreLink builds the deterministic deep link back to the upstream
// exploration UI. Empty when there is nothing to point at (topics without a
// mid).
func (s *Scraper) exploreLink(query, geo string) string {
	if query == "" {
		return ""
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("geo", geo)
	params.Set("date", s.cfg.Session.Timeframe)
	return DefaultBaseURL + "/trends/explore?" + params.Encode()
}

func failure(ctx context.Context, kind, term string, region domain.Region, err error) domain.FetchResult {
	zerolog.Ctx(ctx).Error().
		Str("term", term).
		Str("region", region.Code).
		Err(err).
		Msgf("failed to fetch %s", kind)
	return domain.FetchResult{
		Success:      false,
		ErrorMessage: err.Error(),
		ErrorKind:    ClassifyError(err.Error()),
	}
}
