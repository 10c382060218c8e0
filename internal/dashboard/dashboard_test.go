package dashboard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	calldomain "restaurant-bridge/backend/internal/call/domain"
	usagedomain "restaurant-bridge/backend/internal/usage/domain"
)

// fakeCalls implements CallReader and CallResolver.
type fakeCalls struct {
	mu       sync.Mutex
	pending  []*calldomain.CallEvent
	recent   []*calldomain.CallEvent
	err      error
	reads    int
	gotLimit int
	resolved []int64
}

func (f *fakeCalls) ListPending(ctx context.Context) ([]*calldomain.CallEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.pending, nil
}

func (f *fakeCalls) ListRecent(ctx context.Context, limit int) ([]*calldomain.CallEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

func (f *fakeCalls) ResolveCall(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, id)
	return true, nil
}

func (f *fakeCalls) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeStats struct{ stats *usagedomain.Stats }

func (f fakeStats) Stats(ctx context.Context) *usagedomain.Stats { return f.stats }

func sampleCalls() *fakeCalls {
	created := time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)
	responded := created.Add(2 * time.Minute)
	return &fakeCalls{
		pending: []*calldomain.CallEvent{
			{ID: 2, TableID: "5", CallType: "water", Message: "2 glasses", Status: calldomain.CallStatusPending, CreatedAt: created},
		},
		recent: []*calldomain.CallEvent{
			{ID: 2, TableID: "5", CallType: "water", Status: calldomain.CallStatusPending, CreatedAt: created},
			{ID: 1, TableID: "3", CallType: "bill", Status: calldomain.CallStatusResponded, CreatedAt: created, RespondedAt: &responded},
		},
	}
}

func sampleStats() *usagedomain.Stats {
	return &usagedomain.Stats{
		ByAction:       []usagedomain.Count{{Key: "phrase_tap", Count: 3}, {Key: "translate", Count: 1}},
		Languages:      []usagedomain.Count{{Key: "en", Count: 2}, {Key: "vi", Count: 1}},
		PopularPhrases: []usagedomain.Count{{Key: "すみません！", Count: 2}},
		PhraseTaps:     3,
		Translations:   1,
		Total:          4,
	}
}

func TestSnapshot(t *testing.T) {
	calls := sampleCalls()
	b := NewBoard(calls, fakeStats{sampleStats()}, 0, nil)
	snap := b.Snapshot(context.Background())
	if len(snap.Pending) != 1 || len(snap.Recent) != 2 || snap.Stats.Total != 4 || snap.Degraded {
		t.Errorf("snapshot = %+v", snap)
	}
	if calls.gotLimit != DefaultRecentLimit {
		t.Errorf("recent limit = %d, want %d", calls.gotLimit, DefaultRecentLimit)
	}
	if snap.TakenAt.IsZero() {
		t.Error("TakenAt not set")
	}
}

func TestSnapshot_ReadFailureShowsEmptyState(t *testing.T) {
	calls := &fakeCalls{err: errors.New("database is locked")}
	snap := NewBoard(calls, nil, 5, nil).Snapshot(context.Background())
	if !snap.Degraded {
		t.Error("Degraded should be set")
	}
	if snap.Pending == nil || snap.Recent == nil || snap.Stats == nil {
		t.Fatalf("empty state should be non-nil: %+v", snap)
	}
	if len(snap.Pending)+len(snap.Recent) != 0 || snap.Stats.Total != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPoller_KeepsRunningThroughFailures(t *testing.T) {
	calls := sampleCalls()
	calls.setErr(errors.New("down"))
	board := NewBoard(calls, nil, 0, nil)

	var mu sync.Mutex
	var frames []*Snapshot
	render := func(s *Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		frames = append(frames, s)
		if len(frames) == 2 {
			calls.setErr(nil)
		}
		return errors.New("terminal gone")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewPoller(board, 10*time.Millisecond, render, nil).Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(frames)
		mu.Unlock()
		if n >= 4 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil on cancel", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(frames) < 4 {
		t.Fatalf("rendered %d frames, want at least 4", len(frames))
	}
	if !frames[0].Degraded || len(frames[0].Pending) != 0 {
		t.Errorf("first frame should be the empty state: %+v", frames[0])
	}
	last := frames[len(frames)-1]
	if last.Degraded || len(last.Pending) != 1 {
		t.Errorf("poller did not recover: %+v", last)
	}
}

func TestPoller_RendersImmediately(t *testing.T) {
	rendered := make(chan struct{}, 1)
	p := NewPoller(NewBoard(sampleCalls(), nil, 0, nil), time.Hour, func(*Snapshot) error {
		select {
		case rendered <- struct{}{}:
		default:
		}
		return nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)
	select {
	case <-rendered:
	case <-time.After(2 * time.Second):
		t.Fatal("first frame not rendered before the first tick")
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	snap := NewBoard(sampleCalls(), fakeStats{sampleStats()}, 0, nil).Snapshot(context.Background())
	if err := NewTextRenderer(&buf, false).Render(snap); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"1件の未対応呼び出しがあります",
		"テーブル 5",
		"💧 WATER",
		"2 glasses",
		"フレーズタップ: 3",
		"総利用回数: 4",
		"🇺🇸 en: 2回",
		"1. すみません！ (2回)",
		"🟢 対応済み",
		"🔴 未対応",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[2J") {
		t.Error("clear sequence written with clear=false")
	}
}

func TestTextRenderer_EmptyState(t *testing.T) {
	var buf bytes.Buffer
	snap := NewBoard(&fakeCalls{err: errors.New("down")}, nil, 0, nil).Snapshot(context.Background())
	if err := NewTextRenderer(&buf, true).Render(snap); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"\033[2J", "現在、未対応の呼び出しはありません", "データがありません", "呼び出し履歴がありません", "データベースに接続できません"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestHandler_Page(t *testing.T) {
	calls := sampleCalls()
	h := NewHandler(NewBoard(calls, fakeStats{sampleStats()}, 0, nil), calls, 10*time.Second, nil)
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<meta http-equiv="refresh" content="10">`,
		`action="/dashboard/calls/2/resolve"`,
		"1件の未対応呼び出しがあります",
		"💧 <b>WATER</b>",
		"🇻🇳 <b>vi</b>: 1回",
		"🟢 対応済み",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandler_EscapesUserText(t *testing.T) {
	calls := &fakeCalls{pending: []*calldomain.CallEvent{
		{ID: 1, TableID: "<script>x</script>", CallType: "call", Status: calldomain.CallStatusPending},
	}}
	mux := http.NewServeMux()
	NewHandler(NewBoard(calls, nil, 0, nil), nil, 0, nil).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if strings.Contains(rec.Body.String(), "<script>x</script>") {
		t.Error("table id rendered unescaped")
	}
}

func TestHandler_Resolve(t *testing.T) {
	calls := sampleCalls()
	mux := http.NewServeMux()
	NewHandler(NewBoard(calls, nil, 0, nil), calls, 0, nil).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/calls/2/resolve", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("status = %d, location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(calls.resolved) != 1 || calls.resolved[0] != 2 {
		t.Errorf("resolved = %v", calls.resolved)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/calls/nope/resolve", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}
