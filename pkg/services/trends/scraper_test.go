package trends

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/trend-radar/pkg/models/domain"
	"github.com/de-tools/trend-radar/pkg/services/ratelimit"
)

const xssiPrefix = ")]}'\n"

// fakeUpstream mimics the trends endpoints: warmup, explore with widget
// tokens, ranked widget data and the timeline widget.
type fakeUpstream struct {
	mu          sync.Mutex
	warmCalls   int
	exploreGeos []string
	reject429   int             // explore calls to reject before succeeding
	failGeos    map[string]bool // geos whose explore always 429s
	topicsBody  string          // overrides the topics widget body
}

func (f *fakeUpstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/":
		f.mu.Lock()
		f.warmCalls++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	case explorePath:
		f.handleExplore(w, r)
	case relatedSearchPath:
		f.handleRanked(w, r)
	case multilinePath:
		w.Write([]byte(xssiPrefix + `{"default":{"timelineData":[
			{"time":"1748736000","formattedTime":"Jun 1, 2025","value":[42],"formattedValue":["42"]}
		]}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeUpstream) handleExplore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ComparisonItem []struct {
			Geo string `json:"geo"`
		} `json:"comparisonItem"`
	}
	_ = json.Unmarshal([]byte(r.URL.Query().Get("req")), &req)

	geo := ""
	if len(req.ComparisonItem) > 0 {
		geo = req.ComparisonItem[0].Geo
	}

	f.mu.Lock()
	f.exploreGeos = append(f.exploreGeos, geo)
	reject := f.reject429 > 0 || f.failGeos[geo]
	if f.reject429 > 0 {
		f.reject429--
	}
	f.mu.Unlock()

	if reject {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	w.Write([]byte(xssiPrefix + `{"widgets":[
		{"id":"RELATED_QUERIES","token":"tok-q","request":{}},
		{"id":"RELATED_TOPICS","token":"tok-t","request":{}},
		{"id":"TIMESERIES","token":"tok-s","request":{}}
	]}`))
}

func (f *fakeUpstream) handleRanked(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") == "tok-t" {
		f.mu.Lock()
		body := f.topicsBody
		f.mu.Unlock()
		if body == "" {
			body = xssiPrefix + `{"default":{"rankedList":[
				{"rankedKeyword":[{"topic":{"mid":"/m/0abc","title":"CapCut"},"value":100,"formattedValue":"100"}]},
				{"rankedKeyword":[{"topic":{"mid":"/m/0def","title":"Video editor"},"value":9999,"formattedValue":"Breakout"}]}
			]}}`
		}
		w.Write([]byte(body))
		return
	}

	w.Write([]byte(xssiPrefix + `{"default":{"rankedList":[
		{"rankedKeyword":[{"query":"capcut pro","value":100,"formattedValue":"100"}]},
		{"rankedKeyword":[{"query":"capcut pro apk","value":9999,"formattedValue":"Breakout"}]}
	]}}`))
}

func newTestScraper(baseURL string) *Scraper {
	return NewScraper(ScraperConfig{
		Session: SessionConfig{
			BaseURL:   baseURL,
			Timeframe: "now 7-d",
		},
		RateInterval: 0,
		Retry: ratelimit.RetryConfig{
			MaxRetries:  2,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  time.Millisecond,
		},
	})
}

func TestScraper_FetchRelated(t *testing.T) {
	ctx := context.Background()

	t.Run("returns top and rising records", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := newTestScraper(upstream.server(t).URL)

		res := s.FetchRelated(ctx, "capcut", domain.Region{Code: "US", Name: "United States"})
		require.True(t, res.Success)
		require.Len(t, res.Records, 2)

		top, rising := res.Records[0], res.Records[1]
		assert.Equal(t, domain.CategoryQueriesTop, top.Category)
		assert.Equal(t, "capcut pro", top.Title)
		assert.Equal(t, "100", top.Value)
		assert.Equal(t, domain.CategoryQueriesRising, rising.Category)
		assert.Equal(t, "Breakout", rising.Value)
		assert.Equal(t, "US", rising.RegionCode)
		assert.Contains(t, top.Link, "geo=US")
		assert.Contains(t, top.Link, url.QueryEscape("capcut pro"))
	})

	t.Run("worldwide maps to empty upstream geo", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := newTestScraper(upstream.server(t).URL)

		res := s.FetchRelated(ctx, "capcut", domain.Region{Code: domain.WorldwideCode, Name: "Worldwide"})
		require.True(t, res.Success)

		require.Len(t, upstream.exploreGeos, 1)
		assert.Equal(t, "", upstream.exploreGeos[0])
		// Records still carry the reserved code, not the upstream value.
		assert.Equal(t, domain.WorldwideCode, res.Records[0].RegionCode)
	})

	t.Run("rate limit triggers session rebuild and retry", func(t *testing.T) {
		upstream := &fakeUpstream{reject429: 1}
		s := newTestScraper(upstream.server(t).URL)
		before := s.Session()

		res := s.FetchRelated(ctx, "capcut", domain.Region{Code: domain.WorldwideCode, Name: "Worldwide"})
		require.True(t, res.Success)

		assert.NotSame(t, before, s.Session())
		assert.Equal(t, 2, upstream.warmCalls)
		// The worldwide mapping holds on the rebuilt payload too.
		require.Len(t, upstream.exploreGeos, 2)
		assert.Equal(t, "", upstream.exploreGeos[0])
		assert.Equal(t, "", upstream.exploreGeos[1])
	})

	t.Run("exhausted retries classify as rate limit", func(t *testing.T) {
		upstream := &fakeUpstream{reject429: 10}
		s := newTestScraper(upstream.server(t).URL)

		res := s.FetchRelated(ctx, "capcut", domain.Region{Code: "US", Name: "United States"})
		require.False(t, res.Success)
		assert.Equal(t, domain.ErrorRateLimit, res.ErrorKind)
		assert.Len(t, upstream.exploreGeos, 2)
	})
}

func TestScraper_FetchTopics(t *testing.T) {
	ctx := context.Background()

	t.Run("returns topic records with mid links", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := newTestScraper(upstream.server(t).URL)

		res := s.FetchTopics(ctx, "capcut", domain.Region{Code: "US", Name: "United States"})
		require.True(t, res.Success)
		require.Len(t, res.Records, 2)
		assert.Equal(t, domain.CategoryTopicsTop, res.Records[0].Category)
		assert.Equal(t, "CapCut", res.Records[0].Title)
		assert.Contains(t, res.Records[0].Link, url.QueryEscape("/m/0abc"))
	})

	t.Run("malformed body is an empty success", func(t *testing.T) {
		upstream := &fakeUpstream{topicsBody: xssiPrefix + `{"default":{"rankedList":42}}`}
		s := newTestScraper(upstream.server(t).URL)

		res := s.FetchTopics(ctx, "capcut", domain.Region{Code: "US", Name: "United States"})
		require.True(t, res.Success)
		assert.Empty(t, res.Records)
		assert.Equal(t, domain.ErrorNone, res.ErrorKind)
	})
}

func TestScraper_FetchInterest(t *testing.T) {
	upstream := &fakeUpstream{}
	s := newTestScraper(upstream.server(t).URL)

	res := s.FetchInterest(context.Background(), "capcut", domain.Region{Code: "US", Name: "United States"})
	require.True(t, res.Success)
	require.Len(t, res.Records, 1)
	assert.Equal(t, domain.CategoryInterestOverTime, res.Records[0].Category)
	assert.Equal(t, "2025-06-01 00:00:00", res.Records[0].Title)
	assert.Equal(t, "42", res.Records[0].Value)
}

func TestScraper_FetchAll(t *testing.T) {
	ctx := context.Background()

	t.Run("continues past failing regions", func(t *testing.T) {
		upstream := &fakeUpstream{failGeos: map[string]bool{"FR": true}}
		s := newTestScraper(upstream.server(t).URL)

		records := s.FetchAll(ctx, []string{"capcut"},
			map[string]string{"US": "United States", "FR": "France"}, false, false)

		require.Len(t, records, 2)
		for _, r := range records {
			assert.Equal(t, "US", r.RegionCode)
		}
	})

	t.Run("deduplicates across combinations", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := newTestScraper(upstream.server(t).URL)

		// Same term twice produces identical keys; duplicates collapse.
		records := s.FetchAll(ctx, []string{"capcut", "capcut"},
			map[string]string{"US": "United States"}, false, false)

		assert.Len(t, records, 2)
	})
}

func TestSession_BuildPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores widget tokens", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := NewSession(SessionConfig{BaseURL: upstream.server(t).URL, Timeframe: "now 7-d"})

		require.NoError(t, s.BuildPayload(ctx, "capcut", "US"))
		assert.Equal(t, "US", s.Geo())
		assert.Len(t, s.widgets, 3)
	})

	t.Run("worldwide code becomes empty geo", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := NewSession(SessionConfig{BaseURL: upstream.server(t).URL, Timeframe: "now 7-d"})

		require.NoError(t, s.BuildPayload(ctx, "capcut", domain.WorldwideCode))
		assert.Equal(t, "", s.Geo())
	})

	t.Run("warms once per session", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := NewSession(SessionConfig{BaseURL: upstream.server(t).URL, Timeframe: "now 7-d"})

		require.NoError(t, s.BuildPayload(ctx, "capcut", "US"))
		require.NoError(t, s.BuildPayload(ctx, "roblox", "BR"))
		assert.Equal(t, 1, upstream.warmCalls)
	})
}

func TestSession_Probe(t *testing.T) {
	t.Run("reachable upstream", func(t *testing.T) {
		upstream := &fakeUpstream{}
		s := NewSession(SessionConfig{BaseURL: upstream.server(t).URL})
		require.NoError(t, s.Probe(context.Background()))
	})

	t.Run("rate limited upstream still counts as reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(srv.Close)

		s := NewSession(SessionConfig{BaseURL: srv.URL})
		require.NoError(t, s.Probe(context.Background()))
	})

	t.Run("unreachable upstream fails", func(t *testing.T) {
		srv := httptest.NewServer(nil)
		srv.Close()

		s := NewSession(SessionConfig{BaseURL: srv.URL})
		require.Error(t, s.Probe(context.Background()))
	})
}

func TestStripXSSIPrefix(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(stripXSSIPrefix([]byte(")]}'\n{\"a\":1}"))))
	assert.Equal(t, `[1,2]`, string(stripXSSIPrefix([]byte(")]}'[1,2]"))))
	assert.Equal(t, `{"a":1}`, string(stripXSSIPrefix([]byte(`{"a":1}`))))
}
