package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/CBoon99/spiralbot-v2/internal/config"
	"github.com/CBoon99/spiralbot-v2/internal/supervisor"
	"github.com/CBoon99/spiralbot-v2/internal/tradelog"
)

type stubFinder struct {
	mu  sync.Mutex
	pid int
}

func (f *stubFinder) FindWorker(pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pid, nil
}

func (f *stubFinder) Terminate(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pid = 0
	return nil
}

func (f *stubFinder) Kill(pid int) error { return f.Terminate(pid) }

func (f *stubFinder) Alive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pid == pid
}

type stubProc struct{ pid int }

func (p stubProc) PID() int                 { return p.pid }
func (p stubProc) Signal(os.Signal) error   { return nil }
func (p stubProc) Done() <-chan struct{}    { return nil }
func (p stubProc) ExitCode() int            { return 0 }
func (p stubProc) Alive() bool              { return true }

type stubLauncher struct {
	mu      sync.Mutex
	started int
	finder  *stubFinder
}

func (l *stubLauncher) Start(ctx context.Context, spec supervisor.Spec) (supervisor.Proc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
	if l.finder != nil {
		l.finder.pid = 7777
	}
	return stubProc{pid: 7777}, nil
}

func newTestServer(t *testing.T) (*Server, *stubFinder, *stubLauncher) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Supervisor: config.Supervisor{WorkerBin: "./bin/worker", GracePeriodSecs: 1},
		Trading:    config.Trading{PortfolioInitial: 1000},
		Paths:      config.Paths{TradeLog: filepath.Join(dir, "bue_log.csv")},
	}
	finder := &stubFinder{}
	launcher := &stubLauncher{finder: finder}
	srv := NewServer(cfg, zerolog.Nop())
	srv.finder = finder
	srv.launcher = launcher
	return srv, finder, launcher
}

func seedLog(t *testing.T, srv *Server) {
	t.Helper()
	book, err := tradelog.Create(srv.cfg.Paths.TradeLog)
	if err != nil {
		t.Fatalf("create trade log: %v", err)
	}
	defer book.Close()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	recs := []tradelog.Record{
		{SessionID: "s1", Timestamp: base, Symbol: "BTC", Action: tradelog.ActionScan, Signal: "HOLD", CloseReason: "N/A", Equity: 1000},
		{SessionID: "s1", Timestamp: base.Add(time.Minute), Symbol: "BTC", Action: "CLOSE_BUY", Signal: "CLOSE_BUY", PnL: 20, CloseReason: "TAKE_PROFIT", Equity: 1020},
	}
	for _, rec := range recs {
		if err := book.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestHandleSummary(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedLog(t, srv)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var sum Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Equity != 1020 || sum.TotalTrades != 1 || sum.TotalPnL != 20 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, finder, _ := newTestServer(t)
	seedLog(t, srv)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Running {
		t.Fatalf("expected stopped worker")
	}
	if status.LastActivity == nil {
		t.Fatalf("expected last activity from log")
	}

	finder.pid = 1234
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID != 1234 {
		t.Fatalf("expected running worker 1234, got %+v", status)
	}
}

func TestHandleEventsFilters(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedLog(t, srv)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?action=CLOSE_BUY", nil))
	var body struct {
		Events []eventView `json:"events"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].Action != "CLOSE_BUY" {
		t.Fatalf("unexpected events: %+v", body.Events)
	}
}

func TestHandleBotStartStop(t *testing.T) {
	srv, finder, launcher := newTestServer(t)
	seedLog(t, srv)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bot/start", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed: %d %s", rec.Code, rec.Body.String())
	}
	if launcher.started != 1 {
		t.Fatalf("expected one spawn, got %d", launcher.started)
	}

	// Second start conflicts.
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bot/start", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected conflict, got %d", rec.Code)
	}
	if launcher.started != 1 {
		t.Fatalf("conflicting start must not spawn, got %d", launcher.started)
	}

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bot/stop", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stop failed: %d %s", rec.Code, rec.Body.String())
	}
	if finder.pid != 0 {
		t.Fatalf("worker not terminated")
	}

	// Start rejects non-POST.
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bot/start", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed, got %d", rec.Code)
	}
}

func TestHandleDeposit(t *testing.T) {
	srv, _, _ := newTestServer(t)
	seedLog(t, srv)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/deposit", strings.NewReader(`{"amount":250}`))
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit failed: %d %s", rec.Code, rec.Body.String())
	}

	records, err := tradelog.Read(srv.cfg.Paths.TradeLog)
	if err != nil {
		t.Fatalf("read trade log: %v", err)
	}
	last := records[len(records)-1]
	if last.Action != tradelog.ActionDeposit || last.ValueEstimate != 250 {
		t.Fatalf("deposit row not recorded: %+v", last)
	}
	if last.Equity != 1270 {
		t.Fatalf("expected equity 1270 after deposit, got %.2f", last.Equity)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/deposit", strings.NewReader(`{"amount":-5}`))
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative deposit should 400, got %d", rec.Code)
	}
}
