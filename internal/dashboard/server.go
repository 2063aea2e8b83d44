package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CBoon99/spiralbot-v2/internal/config"
	"github.com/CBoon99/spiralbot-v2/internal/metrics"
	"github.com/CBoon99/spiralbot-v2/internal/supervisor"
	"github.com/CBoon99/spiralbot-v2/internal/tradelog"
	"github.com/CBoon99/spiralbot-v2/internal/util"
)

const broadcastInterval = 5 * time.Second

// Status describes whether the worker is running and what the log last saw.
type Status struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// Server exposes the dashboard HTTP surface.
type Server struct {
	cfg      *config.Config
	log      zerolog.Logger
	hub      *Hub
	finder   supervisor.InstanceFinder
	launcher supervisor.Launcher
	now      func() time.Time

	mu  sync.Mutex
	bot supervisor.Proc // worker started from this dashboard, if any
}

// NewServer wires the dashboard against the shared config.
func NewServer(cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		hub:      NewHub(log),
		finder:   supervisor.ProcFS{},
		launcher: supervisor.ExecLauncher{},
		now:      time.Now,
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/bot/start", s.handleBotStart)
	mux.HandleFunc("/api/bot/stop", s.handleBotStop)
	mux.HandleFunc("/api/deposit", s.handleDeposit)
	mux.HandleFunc("/ws", s.hub.ServeWs)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Run serves until the context is canceled, pushing summary broadcasts to
// connected WebSocket clients on an interval.
func (s *Server) Run(ctx context.Context, port int) error {
	go s.hub.Run()
	go s.broadcastLoop(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Routes(),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.log.Info().Int("port", port).Msg("dashboard listening")
	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, err := tradelog.Read(s.cfg.Paths.TradeLog)
			if err != nil {
				s.log.Warn().Err(err).Msg("trade log read failed")
				continue
			}
			payload, err := json.Marshal(Summarize(records))
			if err != nil {
				continue
			}
			s.hub.Broadcast(payload)
		}
	}
}

func (s *Server) workerStatus() Status {
	var status Status
	pattern := filepath.Base(s.cfg.Supervisor.WorkerBin)
	if pid, err := s.finder.FindWorker(pattern); err == nil && pid != 0 {
		status.Running = true
		status.PID = pid
	}
	if records, err := tradelog.Read(s.cfg.Paths.TradeLog); err == nil && len(records) > 0 {
		ts := records[len(records)-1].Timestamp
		status.LastActivity = &ts
	}
	return status
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workerStatus())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, err := tradelog.Read(s.cfg.Paths.TradeLog)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Summarize(records))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	records, err := tradelog.Read(s.cfg.Paths.TradeLog)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	events := FilterEvents(records, q.Get("symbol"), q.Get("action"), limit)
	writeJSON(w, http.StatusOK, map[string]any{"events": toEventViews(events)})
}

func (s *Server) handleBotStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST required"))
		return
	}
	status := s.workerStatus()
	if status.Running {
		writeError(w, http.StatusConflict, fmt.Errorf("worker already running (pid %d)", status.PID))
		return
	}

	proc, err := s.launcher.Start(context.Background(), supervisor.Spec{Path: s.cfg.Supervisor.WorkerBin})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.mu.Lock()
	s.bot = proc
	s.mu.Unlock()
	s.log.Info().Int("pid", proc.PID()).Msg("worker started from dashboard")
	writeJSON(w, http.StatusOK, map[string]any{"started": true, "pid": proc.PID()})
}

func (s *Server) handleBotStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST required"))
		return
	}
	status := s.workerStatus()
	if !status.Running {
		writeJSON(w, http.StatusOK, map[string]any{"stopped": false, "reason": "not running"})
		return
	}

	if err := s.finder.Terminate(status.PID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	grace := time.Duration(s.cfg.Supervisor.GracePeriodSecs) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}
	deadline := s.now().Add(grace)
	forced := false
	for s.finder.Alive(status.PID) {
		if s.now().After(deadline) {
			_ = s.finder.Kill(status.PID)
			forced = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.log.Info().Int("pid", status.PID).Bool("forced", forced).Msg("worker stopped from dashboard")
	writeJSON(w, http.StatusOK, map[string]any{"stopped": true, "forced": forced})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST required"))
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("amount must be positive"))
		return
	}

	records, err := tradelog.Read(s.cfg.Paths.TradeLog)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	equity := s.cfg.Trading.PortfolioInitial
	if len(records) > 0 {
		equity = records[len(records)-1].Equity
	}

	book, err := tradelog.Open(s.cfg.Paths.TradeLog)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer book.Close()

	now := s.now()
	rec := tradelog.Record{
		SessionID:     util.NewSessionID(now),
		Timestamp:     now,
		Symbol:        "SYSTEM",
		Signal:        "DEPOSIT",
		ValueEstimate: req.Amount,
		Action:        tradelog.ActionDeposit,
		CloseReason:   "N/A",
		Equity:        equity + req.Amount,
	}
	if err := book.Append(rec); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info().Float64("amount", req.Amount).Msg("deposit recorded")
	writeJSON(w, http.StatusOK, map[string]any{"deposited": req.Amount, "equity": rec.Equity})
}

type eventView struct {
	Timestamp string  `json:"timestamp"`
	Symbol    string  `json:"symbol"`
	Action    string  `json:"action"`
	Price     float64 `json:"price"`
	PnL       float64 `json:"pnl"`
	Reason    string  `json:"reason,omitempty"`
	Equity    float64 `json:"equity"`
}

func toEventViews(records []tradelog.Record) []eventView {
	out := make([]eventView, 0, len(records))
	for _, rec := range records {
		out = append(out, eventView{
			Timestamp: rec.Timestamp.Format(tradelog.TimeLayout),
			Symbol:    rec.Symbol,
			Action:    rec.Action,
			Price:     rec.Price,
			PnL:       rec.PnL,
			Reason:    rec.CloseReason,
			Equity:    rec.Equity,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
