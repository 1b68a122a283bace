package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/trend-radar/pkg/models/domain"
)

const (
	// DefaultBaseURL is the production upstream. Tests point sessions at an
	// httptest server instead.
	DefaultBaseURL = "https://trends.google.com"

	explorePath       = "/trends/api/explore"
	relatedSearchPath = "/trends/api/widgetdata/relatedsearches"
	multilinePath     = "/trends/api/widgetdata/multiline"

	widgetRelatedQueries = "RELATED_QUERIES"
	widgetRelatedTopics  = "RELATED_TOPICS"
	widgetTimeseries     = "TIMESERIES"
)

// ErrMalformedResponse marks the known upstream instability of the
// related-topics widget: occasionally the body decodes into garbage. Callers
// treat it as an empty result rather than a failure.
var ErrMalformedResponse = errors.New("malformed widget response")

// SessionConfig describes how to build an upstream session.
type SessionConfig struct {
	BaseURL   string
	Timeframe string
	HL        string
	TZ        int
	Timeout   time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HL == "" {
		c.HL = "en-US"
	}
	if c.TZ == 0 {
		c.TZ = 360
	}
	if c.Timeout == 0 {
		c.Timeout = 25 * time.Second
	}
	return c
}

// Session is one upstream identity: a cookie jar, a User-Agent and the widget
// tokens issued for the current payload. It is discarded wholesale on
// rate-limit retry; there is no partial reuse.
type Session struct {
	cfg       SessionConfig
	http      *http.Client
	userAgent string
	warmed    bool

	keyword string
	geo     string
	widgets map[string]exploreWidget
}

type exploreWidget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

// RankedItem is one entry of a related-queries or related-topics list.
type RankedItem struct {
	Text  string
	Mid   string
	Value string
}

// RankedLists carries the top and rising sections of a related widget.
type RankedLists struct {
	Top    []RankedItem
	Rising []RankedItem
}

// TimePoint is one bucket of an interest-over-time series.
type TimePoint struct {
	Time  string
	Value string
}

func NewSession(cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	jar, _ := cookiejar.New(nil)
	return &Session{
		cfg:       cfg,
		userAgent: randomUserAgent(),
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
	}
}

// UserAgent exposes the session identity for logging and tests.
func (s *Session) UserAgent() string { return s.userAgent }

// BuildPayload requests widget tokens for a (term, geo) pair. The reserved
// worldwide code maps to an empty geo parameter here, and only here;
// rebuilt payloads after a session swap go through it again.
func (s *Session) BuildPayload(ctx context.Context, term, geo string) error {
	if !s.warmed {
		if err := s.warm(ctx); err != nil {
			return err
		}
	}

	upstreamGeo := geo
	if geo == domain.WorldwideCode {
		upstreamGeo = ""
	}

	req := map[string]interface{}{
		"comparisonItem": []map[string]string{
			{"keyword": term, "geo": upstreamGeo, "time": s.cfg.Timeframe},
		},
		"category": 0,
		"property": "",
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal explore request: %w", err)
	}

	params := url.Values{}
	params.Set("hl", s.cfg.HL)
	params.Set("tz", strconv.Itoa(s.cfg.TZ))
	params.Set("req", string(reqJSON))

	body, err := s.get(ctx, explorePath, params)
	if err != nil {
		return fmt.Errorf("explore %q geo %q: %w", term, geo, err)
	}

	var payload struct {
		Widgets []exploreWidget `json:"widgets"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decode explore response: %w", err)
	}

	s.keyword = term
	s.geo = upstreamGeo
	s.widgets = make(map[string]exploreWidget, len(payload.Widgets))
	for _, w := range payload.Widgets {
		s.widgets[w.ID] = w
	}
	return nil
}

// Geo returns the upstream geo parameter of the current payload.
func (s *Session) Geo() string { return s.geo }

// RelatedQueries fetches the top and rising search phrases for the current
// payload. Missing sections come back empty, not as errors.
func (s *Session) RelatedQueries(ctx context.Context) (RankedLists, error) {
	body, err := s.widgetData(ctx, widgetRelatedQueries, relatedSearchPath)
	if err != nil {
		return RankedLists{}, err
	}
	return parseRankedLists(ctx, body, false)
}

// RelatedTopics fetches the top and rising topics. The widget is known to be
// unstable upstream; bodies that cannot be decoded surface as
// ErrMalformedResponse so the caller can tolerate them deliberately.
func (s *Session) RelatedTopics(ctx context.Context) (RankedLists, error) {
	body, err := s.widgetData(ctx, widgetRelatedTopics, relatedSearchPath)
	if err != nil {
		return RankedLists{}, err
	}
	lists, err := parseRankedLists(ctx, body, true)
	if err != nil {
		return RankedLists{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return lists, nil
}

// InterestOverTime fetches the time series for the current payload.
func (s *Session) InterestOverTime(ctx context.Context) ([]TimePoint, error) {
	body, err := s.widgetData(ctx, widgetTimeseries, multilinePath)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Default struct {
			TimelineData []struct {
				Time           string   `json:"time"`
				FormattedTime  string   `json:"formattedTime"`
				Value          []int    `json:"value"`
				FormattedValue []string `json:"formattedValue"`
			} `json:"timelineData"`
		} `json:"default"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode timeline response: %w", err)
	}

	points := make([]TimePoint, 0, len(payload.Default.TimelineData))
	for _, bucket := range payload.Default.TimelineData {
		point := TimePoint{Time: bucket.FormattedTime}
		if secs, err := strconv.ParseInt(bucket.Time, 10, 64); err == nil {
			point.Time = time.Unix(secs, 0).UTC().Format("2006-01-02 15:04:05")
		}
		if len(bucket.Value) > 0 {
			point.Value = strconv.Itoa(bucket.Value[0])
		}
		points = append(points, point)
	}
	return points, nil
}

// Probe checks upstream reachability without spending a payload. A 429
// answer still proves connectivity.
func (s *Session) Probe(ctx context.Context) error {
	err := s.warm(ctx)
	if err != nil && strings.Contains(err.Error(), "429") {
		return nil
	}
	return err
}

func (s *Session) warm(ctx context.Context) error {
	params := url.Values{}
	params.Set("geo", "US")
	if _, err := s.get(ctx, "/", params); err != nil {
		return fmt.Errorf("session warmup: %w", err)
	}
	s.warmed = true
	return nil
}

func (s *Session) widgetData(ctx context.Context, widgetID, path string) ([]byte, error) {
	widget, ok := s.widgets[widgetID]
	if !ok {
		return nil, fmt.Errorf("no data: widget %s missing from explore response", widgetID)
	}

	params := url.Values{}
	params.Set("hl", s.cfg.HL)
	params.Set("tz", strconv.Itoa(s.cfg.TZ))
	params.Set("req", string(widget.Request))
	params.Set("token", widget.Token)

	body, err := s.get(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("widget %s: %w", widgetID, err)
	}
	return body, nil
}

func (s *Session) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("status 429: too many requests")
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("status 401: unauthorized")
	case http.StatusForbidden:
		return nil, fmt.Errorf("status 403: forbidden")
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return stripXSSIPrefix(raw), nil
}

// stripXSSIPrefix removes the `)]}'` guard the upstream prepends to JSON
// bodies.
func stripXSSIPrefix(raw []byte) []byte {
	if idx := strings.IndexAny(string(raw), "{["); idx > 0 {
		return raw[idx:]
	}
	return raw
}

// parseRankedLists decodes the two sections of a relatedsearches body. Each
// section is decoded independently so a malformed one does not suppress the
// other; only a fully undecodable body is an error.
func parseRankedLists(ctx context.Context, body []byte, topics bool) (RankedLists, error) {
	var payload struct {
		Default struct {
			RankedList []json.RawMessage `json:"rankedList"`
		} `json:"default"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return RankedLists{}, fmt.Errorf("decode ranked response: %w", err)
	}

	var lists RankedLists
	for i, raw := range payload.Default.RankedList {
		items, err := parseRankedSection(raw, topics)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Int("section", i).Msg("skipping malformed ranked section")
			continue
		}
		if i == 0 {
			lists.Top = items
		} else if i == 1 {
			lists.Rising = items
		}
	}
	return lists, nil
}

func parseRankedSection(raw json.RawMessage, topics bool) ([]RankedItem, error) {
	var section struct {
		RankedKeyword []struct {
			Query string `json:"query"`
			Topic *struct {
				Mid   string `json:"mid"`
				Title string `json:"title"`
			} `json:"topic"`
			Value          int    `json:"value"`
			FormattedValue string `json:"formattedValue"`
		} `json:"rankedKeyword"`
	}
	if err := json.Unmarshal(raw, &section); err != nil {
		return nil, err
	}

	items := make([]RankedItem, 0, len(section.RankedKeyword))
	for _, kw := range section.RankedKeyword {
		item := RankedItem{Value: kw.FormattedValue}
		if item.Value == "" {
			item.Value = strconv.Itoa(kw.Value)
		}
		if topics {
			if kw.Topic == nil {
				continue
			}
			item.Text = kw.Topic.Title
			item.Mid = kw.Topic.Mid
		} else {
			item.Text = kw.Query
		}
		items = append(items, item)
	}
	return items, nil
}
