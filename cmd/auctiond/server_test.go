package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/session"
	"github.com/jensholdgaard/franchise-auction/internal/telemetry"

	_ "github.com/jensholdgaard/franchise-auction/internal/session/memory"
)

func player(name string, runs, wickets int, role pool.Role) pool.Player {
	score := pool.DemandScore(runs, wickets, 0)
	return pool.Player{
		Name:      name,
		StatsName: name,
		Runs:      runs,
		Wickets:   wickets,
		Economy:   pool.DefaultEconomy,
		Demand:    int(score),
		BasePrice: pool.BasePriceFor(score),
		Role:      role,
	}
}

func newTestServer(t *testing.T, seed int64) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	master := pool.Pool{
		player("Arjun", 2400, 0, pool.RoleBatter),
		player("Bishnoi", 110, 40, pool.RoleBowler),
		player("Chahal", 50, 55, pool.RoleBowler),
		player("Dhawan", 3100, 0, pool.RoleBatter),
		player("Eshan", 900, 0, pool.RoleWicketkeeper),
		player("Faf", 2800, 2, pool.RoleBatter),
	}
	rosters := map[string][]string{
		"csk": {"Arjun", "Bishnoi", "Eshan"},
		"mi":  {"Chahal", "Dhawan", "Faf"},
	}

	ctx := context.Background()
	store, err := session.Open(ctx, config.SessionConfig{Driver: "memory"}, clock.Mock{T: time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewServer(cfg, master, rosters, store,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		noop.NewTracerProvider(),
		telemetry.NewNopProvider().Metrics,
		clock.Mock{T: time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)},
		func() random.Source { return random.NewSeeded(seed) },
	)

	mux := http.NewServeMux()
	srv.Routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createRun(t *testing.T, ts *httptest.Server) createRunResponse {
	t.Helper()
	var created createRunResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/runs", createRunRequest{HumanTeam: "csk"}, &created)
	if code != http.StatusCreated {
		t.Fatalf("creating run: got status %d, want %d", code, http.StatusCreated)
	}
	return created
}

func runRetention(t *testing.T, ts *httptest.Server, runID string) retentionResponse {
	t.Helper()
	var ret retentionResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+runID+"/retention",
		retentionRequest{Mode: "exact", Target: 1, Players: []string{"Arjun"}}, &ret)
	if code != http.StatusOK {
		t.Fatalf("retention: got status %d, want %d", code, http.StatusOK)
	}
	return ret
}

func TestCreateRun(t *testing.T) {
	_, ts := newTestServer(t, 1)

	created := createRun(t, ts)
	if created.RunID == "" {
		t.Error("got empty run_id")
	}
	if created.HumanTeam != "CSK" {
		t.Errorf("got human team %q, want %q", created.HumanTeam, "CSK")
	}
	if len(created.Teams) != 2 {
		t.Errorf("got %d teams, want 2", len(created.Teams))
	}
	if created.PoolSize != 6 {
		t.Errorf("got pool size %d, want 6", created.PoolSize)
	}
}

func TestCreateRunUnknownFranchise(t *testing.T) {
	_, ts := newTestServer(t, 1)

	code := doJSON(t, http.MethodPost, ts.URL+"/runs", createRunRequest{HumanTeam: "nope"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", code, http.StatusBadRequest)
	}
}

func TestRetentionEntersBidding(t *testing.T) {
	_, ts := newTestServer(t, 1)
	created := createRun(t, ts)

	ret := runRetention(t, ts, created.RunID)

	if got := ret.Retained["CSK"]; len(got) != 1 || got[0] != "Arjun" {
		t.Errorf("got CSK retention %v, want [Arjun]", got)
	}
	if got := ret.Retained["MI"]; len(got) != 1 {
		t.Errorf("got MI retention %v, want exactly one player", got)
	}
	// Each franchise paid one retention fee.
	wantBudget := 2000 - 150
	for name, budget := range ret.Budgets {
		if budget != wantBudget {
			t.Errorf("%s budget = %d, want %d", name, budget, wantBudget)
		}
	}
	if ret.PoolSize != 4 {
		t.Errorf("got pool size %d, want 4", ret.PoolSize)
	}

	var status statusResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/runs/"+created.RunID, nil, &status); code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", code, http.StatusOK)
	}
	if status.Phase != "AWAITING_PLAYER" {
		t.Errorf("got phase %q, want AWAITING_PLAYER", status.Phase)
	}
}

func TestRetentionIsOneTime(t *testing.T) {
	_, ts := newTestServer(t, 1)
	created := createRun(t, ts)
	first := runRetention(t, ts, created.RunID)

	// A second submission must be refused outright, not re-resolved.
	code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/retention",
		retentionRequest{Mode: "exact", Target: 1, Players: []string{"Arjun"}}, nil)
	if code != http.StatusConflict {
		t.Fatalf("second retention: got status %d, want %d", code, http.StatusConflict)
	}

	var status statusResponse
	doJSON(t, http.MethodGet, ts.URL+"/runs/"+created.RunID, nil, &status)
	for _, tm := range status.Teams {
		if tm.Budget != first.Budgets[tm.Name] {
			t.Errorf("%s budget changed by repeated retention: %d, want %d", tm.Name, tm.Budget, first.Budgets[tm.Name])
		}
		held := map[string]int{}
		for _, name := range tm.SquadNames {
			held[name]++
		}
		for name, n := range held {
			if n != 1 {
				t.Errorf("%s holds %q %d times", tm.Name, name, n)
			}
		}
	}
}

func TestRetentionRejectsBadSubmission(t *testing.T) {
	_, ts := newTestServer(t, 1)
	created := createRun(t, ts)

	code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/retention",
		retentionRequest{Mode: "exact", Target: 2, Players: []string{"Arjun"}}, nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want %d", code, http.StatusUnprocessableEntity)
	}
}

func TestBidFlow(t *testing.T) {
	_, ts := newTestServer(t, 1)
	created := createRun(t, ts)
	runRetention(t, ts, created.RunID)

	var status statusResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status); code != http.StatusOK {
		t.Fatalf("next: got %d, want %d", code, http.StatusOK)
	}
	if status.CurrentPlayer == nil {
		t.Fatal("no player opened")
	}
	open := status.CurrentPlayer.Name
	base := status.HighestBid

	var bid bidResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/bid", bidRequest{Amount: base + 10}, &bid); code != http.StatusOK {
		t.Fatalf("bid: got %d, want %d", code, http.StatusOK)
	}
	if !bid.Accepted {
		t.Fatalf("bid rejected: %s", bid.Message)
	}
	if bid.Status.HighestBid < base+10 {
		t.Errorf("highest bid = %d, want at least %d", bid.Status.HighestBid, base+10)
	}

	// Too-low bids come back declined, not failed, and leave state intact.
	before := bid.Status.HighestBid
	var low bidResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/bid", bidRequest{Amount: 1}, &low); code != http.StatusOK {
		t.Fatalf("low bid: got %d, want %d", code, http.StatusOK)
	}
	if low.Accepted {
		t.Error("low bid was accepted")
	}
	if low.Status.HighestBid != before {
		t.Errorf("highest bid changed from %d to %d on a declined bid", before, low.Status.HighestBid)
	}

	var fin finalizeResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/finalize", nil, &fin); code != http.StatusOK {
		t.Fatalf("finalize: got %d, want %d", code, http.StatusOK)
	}
	if !fin.Sold {
		t.Fatalf("finalize did not sell: %s", fin.Message)
	}
	if fin.Status.CurrentPlayer != nil {
		t.Errorf("player %s still open after finalize", open)
	}
}

func TestNextWhileOpenReturnsSamePlayer(t *testing.T) {
	_, ts := newTestServer(t, 1)
	created := createRun(t, ts)
	runRetention(t, ts, created.RunID)

	var status statusResponse
	doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status)
	if status.CurrentPlayer == nil {
		t.Fatal("no player opened")
	}
	open := status.CurrentPlayer.Name

	// Repeated /next must not advance past the open lot.
	doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status)
	if status.CurrentPlayer == nil || status.CurrentPlayer.Name != open {
		t.Fatalf("second /next opened %v, want %q still up", status.CurrentPlayer, open)
	}

	// Drive the run to the end with stray /next calls in between; every
	// player must surface as sold or unsold.
	for i := 0; i < 10 && !status.AuctionOver; i++ {
		doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status)
		if status.CurrentPlayer != nil {
			doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/skip", nil, &status)
		}
	}
	if !status.AuctionOver {
		t.Fatal("auction never finished")
	}

	var summary map[string]json.RawMessage
	doJSON(t, http.MethodGet, ts.URL+"/runs/"+created.RunID+"/summary", nil, &summary)
	var sold []struct {
		Name string `json:"name"`
	}
	var unsold []string
	if err := json.Unmarshal(summary["sold_players"], &sold); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(summary["unsold_players"], &unsold); err != nil {
		t.Fatal(err)
	}
	if got := len(sold) + len(unsold); got != 4 {
		t.Errorf("sold(%d) + unsold(%d) = %d, want all 4 auctioned players", len(sold), len(unsold), got)
	}
}

func TestSkipRunsFullWar(t *testing.T) {
	_, ts := newTestServer(t, 3)
	created := createRun(t, ts)
	runRetention(t, ts, created.RunID)

	var status statusResponse
	doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status)
	if status.CurrentPlayer == nil {
		t.Fatal("no player opened")
	}

	// Decode into a fresh struct: current_player is omitempty, so reusing
	// the previous status would keep the stale pointer when the field is
	// absent from the skip response.
	var afterSkip statusResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/skip", nil, &afterSkip); code != http.StatusOK {
		t.Fatalf("skip: got %d, want %d", code, http.StatusOK)
	}
	if afterSkip.CurrentPlayer != nil {
		t.Error("player still open after skip")
	}
	if len(afterSkip.BidLog) == 0 {
		t.Error("skip produced no bid events")
	}
}

func TestFullRunToSummary(t *testing.T) {
	_, ts := newTestServer(t, 7)
	created := createRun(t, ts)
	runRetention(t, ts, created.RunID)

	var status statusResponse
	for i := 0; i < 10; i++ {
		doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status)
		if status.AuctionOver {
			break
		}
		doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/skip", nil, &status)
	}
	if !status.AuctionOver {
		t.Fatal("auction never finished")
	}

	var summary map[string]json.RawMessage
	if code := doJSON(t, http.MethodGet, ts.URL+"/runs/"+created.RunID+"/summary", nil, &summary); code != http.StatusOK {
		t.Fatalf("summary: got %d, want %d", code, http.StatusOK)
	}

	// Every pool player ended up retained, sold or unsold.
	var sold []struct {
		Name string `json:"name"`
	}
	var unsold []string
	if err := json.Unmarshal(summary["sold_players"], &sold); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(summary["unsold_players"], &unsold); err != nil {
		t.Fatal(err)
	}
	if got := len(sold) + len(unsold); got != 4 {
		t.Errorf("sold(%d) + unsold(%d) = %d, want 4", len(sold), len(unsold), got)
	}
}

func TestRunNotFound(t *testing.T) {
	_, ts := newTestServer(t, 1)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/runs/missing"},
		{http.MethodPost, "/runs/missing/next"},
		{http.MethodPost, "/runs/missing/finalize"},
		{http.MethodGet, "/runs/missing/summary"},
	} {
		if code := doJSON(t, tc.method, ts.URL+tc.path, nil, nil); code != http.StatusNotFound {
			t.Errorf("%s %s: got status %d, want %d", tc.method, tc.path, code, http.StatusNotFound)
		}
	}
}

func TestDeleteRun(t *testing.T) {
	_, ts := newTestServer(t, 1)
	created := createRun(t, ts)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/runs/"+created.RunID, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	if code := doJSON(t, http.MethodGet, ts.URL+"/runs/"+created.RunID, nil, nil); code != http.StatusNotFound {
		t.Errorf("after delete: got status %d, want %d", code, http.StatusNotFound)
	}
}

func TestStatePersistsAcrossRequests(t *testing.T) {
	srv, ts := newTestServer(t, 1)
	created := createRun(t, ts)
	runRetention(t, ts, created.RunID)

	var status statusResponse
	doJSON(t, http.MethodPost, ts.URL+"/runs/"+created.RunID+"/next", nil, &status)
	open := status.CurrentPlayer.Name

	// A fresh manager rehydrated from the store sees the same open player.
	m, err := srv.loadManager(context.Background(), created.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.CurrentPlayer(); got == nil || got.Name != open {
		t.Errorf("rehydrated current player = %v, want %s", got, open)
	}
	if got := fmt.Sprint(m.Phase()); got != "PLAYER_OPEN" {
		t.Errorf("rehydrated phase = %s, want PLAYER_OPEN", got)
	}
}
