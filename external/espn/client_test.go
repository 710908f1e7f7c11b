package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
	"github.com/matchdaylabs/qualprob/internal/platform/resilience"
)

const groupedPayload = `{
	"name": "FIFA World Cup Qualifying - UEFA",
	"abbreviation": "UEFA",
	"seasons": [
		{"year": 2025, "types": [
			{"name": "First Round", "displayName": "First Round Display", "hasStandings": false},
			{"name": "Group Stage", "displayName": "Group Stage Display", "hasStandings": true}
		]}
	],
	"children": [
		{
			"name": "Group A",
			"abbreviation": "A",
			"standings": {"entries": [
				{
					"team": {"id": "660", "displayName": "Spain", "abbreviation": "ESP"},
					"note": {"description": "Qualifies for World Cup"},
					"stats": [
						{"name": "rank", "value": 1},
						{"name": "gamesPlayed", "value": 8},
						{"name": "wins", "value": 6},
						{"name": "ties", "value": 2},
						{"name": "losses", "value": 0},
						{"name": "pointsFor", "value": 19},
						{"name": "pointsAgainst", "value": 4},
						{"name": "pointDifferential", "value": 15},
						{"name": "points", "value": 20},
						{"name": "overall", "summary": "6-2-0"}
					]
				},
				{
					"team": {"id": "661", "displayName": "Sweden"},
					"stats": [
						{"name": "rank", "displayValue": "2"},
						{"name": "points", "displayValue": "14"},
						{"name": "pointDifferential", "displayValue": "+5"}
					]
				},
				{
					"team": {"id": "999"},
					"stats": [{"name": "rank", "value": 3}]
				}
			]}
		},
		{"name": "Group B", "abbreviation": "B", "standings": {"entries": []}}
	]
}`

const singleTablePayload = `{
	"name": "FIFA World Cup Qualifying - CONMEBOL",
	"seasons": [],
	"standings": {"entries": [
		{
			"team": {"id": "202", "displayName": "Argentina"},
			"stats": [{"name": "rank", "value": 1}, {"name": "points", "value": 31}]
		}
	]}
}`

func newTestClient(t *testing.T, serverURL string, confederation standings.Confederation) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		BaseURL:        serverURL,
		Confederation:  confederation,
		Timeout:        5 * time.Second,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.BreakerSettings{Enabled: false},
	})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}
	return client
}

func TestFetchStandingsGroupedPayload(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(groupedPayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, standings.UEFA)
	groups, err := client.FetchStandings(context.Background())
	if err != nil {
		t.Fatalf("FetchStandings() = %v", err)
	}

	if gotPath != "/fifa.worldq.uefa/standings" {
		t.Errorf("request path = %q", gotPath)
	}
	for _, param := range []string{"region=us", "lang=en", "contentorigin=espn", "level=2"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("query %q missing %q", gotQuery, param)
		}
	}

	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1 (empty group skipped)", len(groups))
	}
	group := groups[0]
	if group.GroupName != "Group A" {
		t.Errorf("GroupName = %q", group.GroupName)
	}
	if group.Stage != "Group Stage" {
		t.Errorf("Stage = %q, want first type with standings", group.Stage)
	}
	if group.Checksum == "" || group.SourceURL == "" || group.FetchedAt.IsZero() {
		t.Errorf("group provenance not stamped: %+v", group)
	}

	if len(group.Entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (nameless entry dropped)", len(group.Entries))
	}

	spain := group.Entries[0]
	if spain.TeamName != "Spain" || spain.Rank != 1 || spain.Points != 20 ||
		spain.Draws != 2 || spain.GoalsFor != 19 || spain.GoalDifference != 15 {
		t.Errorf("spain entry = %+v", spain)
	}
	if spain.Note != "Qualifies for World Cup" {
		t.Errorf("spain note = %q", spain.Note)
	}
	if spain.RecordSummary != "6-2-0" {
		t.Errorf("spain record = %q", spain.RecordSummary)
	}
	if len(spain.Raw) == 0 {
		t.Error("spain raw payload not retained")
	}

	sweden := group.Entries[1]
	if sweden.Rank != 2 || sweden.Points != 14 || sweden.GoalDifference != 5 {
		t.Errorf("displayValue fallback entry = %+v", sweden)
	}
}

func TestFetchStandingsSingleTable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(singleTablePayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, standings.CONMEBOL)
	groups, err := client.FetchStandings(context.Background())
	if err != nil {
		t.Fatalf("FetchStandings() = %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if groups[0].GroupName != "FIFA World Cup Qualifying - CONMEBOL" {
		t.Errorf("GroupName = %q", groups[0].GroupName)
	}
	if groups[0].Stage != "unknown" {
		t.Errorf("Stage = %q, want unknown with no seasons", groups[0].Stage)
	}
}

func TestStageFallsBackToSeasonName(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"name": "FIFA World Cup Qualifying - AFC",
		"seasons": [
			{"displayName": "2026 Qualifying", "types": [{"name": "First Round", "hasStandings": false}]},
			{"displayName": "2022 Qualifying", "types": [{"name": "Old Round", "hasStandings": true}]}
		],
		"standings": {"entries": [
			{"team": {"id": "1", "displayName": "Japan"}, "stats": [{"name": "rank", "value": 1}]}
		]}
	}`)

	groups, err := parsePayload(standings.AFC, payload)
	if err != nil {
		t.Fatalf("parsePayload() = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	// Only the leading season counts; flagged types in later seasons are
	// stale campaigns.
	if groups[0].Stage != "2026 Qualifying" {
		t.Errorf("Stage = %q, want season display name", groups[0].Stage)
	}
}

func TestStageDefaultsWithoutSeasonName(t *testing.T) {
	t.Parallel()

	stage := inferStage([]seasonBlock{{Year: 2026, Types: []seasonTypeBlock{{Name: "First Round"}}}})
	if stage != "stage" {
		t.Errorf("inferStage() = %q, want \"stage\"", stage)
	}
}

func TestFetchStandingsUnrecognizedPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name": "empty", "seasons": []}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, standings.AFC)
	_, err := client.FetchStandings(context.Background())
	if !crerr.Is(err, ErrPayloadFormat) {
		t.Fatalf("FetchStandings() = %v, want ErrPayloadFormat", err)
	}
}

func TestFetchStandingsRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(singleTablePayload))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL:        server.URL,
		Confederation:  standings.CONMEBOL,
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.BreakerSettings{Enabled: false},
	})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	if _, err := client.FetchStandings(context.Background()); err != nil {
		t.Fatalf("FetchStandings() after retry = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestFetchStandingsSingleAttemptByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	// MaxRetries unset: the client issues exactly one request and reports
	// the transient failure to the caller.
	client := newTestClient(t, server.URL, standings.CONCACAF)
	if _, err := client.FetchStandings(context.Background()); err == nil {
		t.Fatal("FetchStandings() on 502 succeeded")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retries by default)", got)
	}
}

func TestFetchStandingsClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		BaseURL:        server.URL,
		Confederation:  standings.OFC,
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.BreakerSettings{Enabled: false},
	})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	if _, err := client.FetchStandings(context.Background()); err == nil {
		t.Fatal("FetchStandings() on 404 succeeded")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (404 is terminal)", got)
	}
}

func TestPayloadChecksumIgnoresKeyOrder(t *testing.T) {
	t.Parallel()

	a, err := payloadChecksum([]byte(`{"b": 2, "a": 1}`))
	if err != nil {
		t.Fatalf("payloadChecksum() = %v", err)
	}
	b, err := payloadChecksum([]byte(`{"a": 1, "b": 2}`))
	if err != nil {
		t.Fatalf("payloadChecksum() = %v", err)
	}
	if a != b {
		t.Errorf("checksum depends on key order: %s != %s", a, b)
	}

	c, err := payloadChecksum([]byte(`{"a": 1, "b": 3}`))
	if err != nil {
		t.Fatalf("payloadChecksum() = %v", err)
	}
	if a == c {
		t.Error("checksum did not change with payload content")
	}
}

func TestSourceURLIncludesSeason(t *testing.T) {
	t.Parallel()

	client, err := NewClient(ClientConfig{
		Confederation: standings.CAF,
		Season:        2025,
		SeasonType:    12,
		Logger:        logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewClient() = %v", err)
	}

	url := client.SourceURL()
	if !strings.Contains(url, "fifa.worldq.caf") {
		t.Errorf("SourceURL() = %q, missing league code", url)
	}
	if !strings.Contains(url, "season=2025") || !strings.Contains(url, "seasontype=12") {
		t.Errorf("SourceURL() = %q, missing season params", url)
	}
}
