package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/aisociety/internal/config"
	"github.com/nvandessel/aisociety/internal/logging"
	"github.com/nvandessel/aisociety/internal/ratelimit"
	"github.com/nvandessel/aisociety/internal/society"
	"github.com/nvandessel/aisociety/internal/store"
	"github.com/nvandessel/aisociety/internal/telemetry"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxRequestBody bounds POST bodies; a simulate request is a handful of fields.
const maxRequestBody = 64 * 1024

// defaultListLimit is the number of runs returned by GET /api/runs without ?limit.
const defaultListLimit = 50

// Options configures a Server.
type Options struct {
	// Defaults fill any input a request leaves out.
	Defaults society.Params
	// Limits bound accepted requests and configure rate limiting.
	Limits config.ServerConfig
	// Store persists runs. Nil disables saving and the runs endpoints.
	Store  store.RunStore
	Logger *slog.Logger
	RunLog *logging.RunLogger
}

// SimulateRequest is the body of POST /api/simulate. Absent fields take
// the server defaults.
type SimulateRequest struct {
	society.Params
	Seed  uint64 `json:"seed"`
	Label string `json:"label,omitempty"`
}

// SimulateResponse is the body returned by POST /api/simulate.
type SimulateResponse struct {
	Report
	RunID string `json:"run_id,omitempty"`
}

// Server serves the interactive HTML form and the JSON API.
type Server struct {
	opts       Options
	limiter    *ratelimit.Limiter
	schema     *jsonschema.Schema
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new simulator server.
func NewServer(opts Options) (*Server, error) {
	schemaBytes, err := schemas.ReadFile("schemas/simulate.schema.json")
	if err != nil {
		return nil, fmt.Errorf("read request schema: %w", err)
	}
	schema, err := jsonschema.CompileString("simulate.schema.json", string(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		opts:    opts,
		limiter: ratelimit.PerMinute(opts.Limits.RequestsPerMinute, opts.Limits.Burst),
		schema:  schema,
		logger:  logger,
	}, nil
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the routed, rate-limited handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	return s.rateLimit(mux)
}

// ListenAndServe starts the HTTP server on the configured address and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.opts.Limits.Addr
	if addr == "" {
		addr = "localhost:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", s.Addr())

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// rateLimit rejects clients that exceed the per-client token bucket.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if !s.limiter.Allow(client) {
			s.logger.Debug("rate limited", "client", client, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, ratelimit.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleIndex serves the slider form and, when submitted, the charts.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, seed, err := ParamsFromQuery(s.opts.Defaults, q)

	status := http.StatusOK
	data := newPageData(p, seed, nil, true)
	if err == nil {
		var res *society.Result
		res, err = s.simulate(r.Context(), p, seed)
		if err == nil {
			data = newPageData(p, seed, res, true)
		}
	}
	if err != nil {
		status = statusFor(err)
		data.Error = err.Error()
	}

	html, renderErr := renderPage(data)
	if renderErr != nil {
		http.Error(w, "render error: "+renderErr.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(html)
}

// handleSimulate validates a JSON body against the request schema, runs the
// simulation and optionally saves it (?save=1).
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(body) > maxRequestBody {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", maxRequestBody))
		return
	}

	req, err := s.decodeSimulateRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.simulate(r.Context(), req.Params, req.Seed)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := SimulateResponse{Report: NewReport(res)}
	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save {
		if s.opts.Store == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("run store is not configured"))
			return
		}
		id, err := s.opts.Store.SaveRun(r.Context(), &store.Run{Label: req.Label, Result: *res})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.RunID = id
		s.logger.Info("run saved", "id", id)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeSimulateRequest(body []byte) (*SimulateRequest, error) {
	// Schema validation works on the generic form; UseNumber keeps large
	// seeds exact.
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("request does not match schema: %w", err)
	}

	req := &SimulateRequest{Params: s.opts.Defaults}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run store is not configured"))
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %q is not a non-negative integer", v))
			return
		}
		limit = n
	}

	runs, err := s.opts.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run store is not configured"))
		return
	}

	run, err := s.opts.Store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// simulate enforces host limits, runs the model and records the run trace.
func (s *Server) simulate(ctx context.Context, p society.Params, seed uint64) (*society.Result, error) {
	if err := s.opts.Limits.CheckLimits(p); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSimulation(ctx, "http", p)
	start := time.Now()
	res, err := society.Run(p, seed)
	telemetry.EndSimulation(span, res, err)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	s.logger.DebugContext(ctx, "simulated",
		"years", p.Years, "population", p.Population, "seed", res.Seed, "elapsed", elapsed)
	s.opts.RunLog.LogSimulation(ctx, "http", res, elapsed)

	return res, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, society.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
