package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zapio"

	"github.com/mstokkenes/manopt/internal/config"
	"github.com/mstokkenes/manopt/internal/logging"
	"github.com/mstokkenes/manopt/internal/manifold"
	"github.com/mstokkenes/manopt/internal/optimization"
	"github.com/mstokkenes/manopt/internal/optimization/descent"
	"github.com/mstokkenes/manopt/internal/optimization/objectives"
	"github.com/mstokkenes/manopt/internal/optimization/swarm"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// SolveRequest describes a solve job started through the API.
type SolveRequest struct {
	// Solver is "pswarm" (default) or "descent".
	Solver string `json:"solver"`
	// Manifold is "sphere", "euclidean" or "spd".
	Manifold string `json:"manifold"`
	// Size is the manifold size parameter: ambient dimension for sphere
	// and euclidean, matrix size for spd.
	Size int `json:"size"`
	// Objective names a registered objective.
	Objective string `json:"objective"`
	// MaxIterations caps the run; the server config caps it further.
	MaxIterations int `json:"max_iterations"`
	// Seed overrides the server's solver seed when non-zero.
	Seed int64 `json:"seed"`
	// Debug routes per-iteration debug output to the structured log.
	Debug bool `json:"debug"`
}

// SolveState tracks one solve job. It is protected by the server's mutex.
type SolveState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	Request     SolveRequest
	StartTime   time.Time
	EndTime     *time.Time
	Result      *optimization.Result
	CostTrace   *optimization.RecordCost
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
	Err         string
}

// Server implements the HTTP and JSON-RPC API of the solve service. It
// manages solve jobs and provides endpoints to start, monitor and cancel
// them.
type Server struct {
	cfg    *config.Config
	logger Logger

	objectives *objectives.Registry

	solves   map[string]*SolveState
	solvesMu sync.RWMutex // Protects the solves map
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		objectives: objectives.NewRegistry(),
		solves:     make(map[string]*SolveState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/solve/{id}", s.handleStatus)
		r.Delete("/solve/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "solve.start":
		var req SolveRequest
		if err = json.Unmarshal(request.Params, &req); err == nil {
			result, err = s.startSolve(req)
		}
	case "solve.status":
		var p struct {
			SolveID string `json:"solve_id"`
		}
		if err = json.Unmarshal(request.Params, &p); err == nil {
			result, err = s.solveStatus(p.SolveID)
		}
	case "solve.cancel":
		var p struct {
			SolveID string `json:"solve_id"`
		}
		if err = json.Unmarshal(request.Params, &p); err == nil {
			err = s.cancelSolve(p.SolveID)
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// buildManifold resolves the manifold named in a request.
func buildManifold(family string, size int) (manifold.Manifold, error) {
	switch family {
	case "sphere":
		if size < 2 {
			return nil, fmt.Errorf("sphere requires size >= 2, got %d", size)
		}
		return manifold.NewSphere(size), nil
	case "euclidean":
		if size < 1 {
			return nil, fmt.Errorf("euclidean requires size >= 1, got %d", size)
		}
		return manifold.NewEuclidean(size), nil
	case "spd":
		if size < 1 {
			return nil, fmt.Errorf("spd requires size >= 1, got %d", size)
		}
		return manifold.NewSPD(size), nil
	}
	return nil, fmt.Errorf("unknown manifold %q", family)
}

// startSolve validates the request, registers the job and launches it.
func (s *Server) startSolve(req SolveRequest) (interface{}, error) {
	if req.Solver == "" {
		req.Solver = "pswarm"
	}
	if req.Solver != "pswarm" && req.Solver != "descent" {
		return nil, fmt.Errorf("unknown solver %q", req.Solver)
	}
	m, err := buildManifold(req.Manifold, req.Size)
	if err != nil {
		return nil, err
	}
	obj, err := s.objectives.Build(req.Objective, m)
	if err != nil {
		return nil, err
	}
	if req.MaxIterations < 1 || req.MaxIterations > s.cfg.Solver.MaxIterations {
		req.MaxIterations = s.cfg.Solver.MaxIterations
	}
	if req.Seed == 0 {
		req.Seed = s.cfg.Solver.Seed
	}

	id := fmt.Sprintf("solve_%d", time.Now().UnixNano())
	ctx, cancel := context.WithCancel(context.Background())

	state := &SolveState{
		ID:          id,
		Status:      "pending",
		Request:     req,
		StartTime:   time.Now(),
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.solvesMu.Lock()
	s.solves[id] = state
	s.solvesMu.Unlock()

	solvesStarted.Inc()
	go s.runSolve(ctx, state, m, obj)

	return map[string]interface{}{
		"solve_id": id,
		"status":   "pending",
	}, nil
}

// runSolve executes the solve in a goroutine.
func (s *Server) runSolve(ctx context.Context, state *SolveState, m manifold.Manifold, obj optimization.Objective) {
	s.solvesMu.Lock()
	state.Status = "running"
	s.solvesMu.Unlock()

	req := state.Request
	prob := optimization.NewProblem(m, obj)

	var (
		base optimization.State
		sol  optimization.Solver
	)
	switch req.Solver {
	case "descent":
		cfg := descent.Config{
			Stopping: optimization.Or(
				optimization.NewStopAfterIteration(req.MaxIterations),
				optimization.NewStopWhenGradientNormLess(1e-8),
			),
		}
		x0 := manifold.NewPoint(m)
		m.RandomPoint(newRand(req.Seed), x0)
		base = descent.NewState(m, cfg, x0)
		sol = descent.New(cfg)
	default:
		cfg := swarm.Config{
			Size:          s.cfg.Solver.SwarmSize,
			Seed:          req.Seed,
			Workers:       s.cfg.Solver.Workers,
			MaxIterations: req.MaxIterations,
		}
		base = swarm.NewState(m, cfg, nil)
		sol = swarm.New(cfg)
	}

	// Cost trace is always recorded and exposed through the status API.
	trace := &optimization.RecordCost{}
	decorated := optimization.State(optimization.NewRecordState(base, 1, map[string]optimization.RecordAction{
		"cost": trace,
	}))
	s.solvesMu.Lock()
	state.CostTrace = trace
	s.solvesMu.Unlock()

	if req.Debug {
		// Route the debug decoration through the structured logger.
		zl := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
			"solve_id": state.ID,
		}))
		dw := &zapio.Writer{Log: zl}
		defer dw.Close()
		decorated = optimization.NewDebugState(decorated, 10, dw,
			optimization.DebugIteration{}, optimization.DebugCost{}, &optimization.DebugChange{})
	}

	result, err := optimization.Solve(ctx, prob, decorated, sol)

	s.solvesMu.Lock()
	defer s.solvesMu.Unlock()

	if err != nil {
		s.logger.Error("Solve failed", map[string]interface{}{
			"solve_id": state.ID,
			"error":    err.Error(),
		})
		if state.Status != "cancelled" {
			state.Status = "failed"
			state.Err = err.Error()
		}
		solvesFinished.WithLabelValues("failed").Inc()
	} else if state.Status != "cancelled" {
		state.Status = "completed"
		state.Result = result
		solvesFinished.WithLabelValues("completed").Inc()
		solveIterations.Observe(float64(result.Iterations))
		solveDuration.Observe(time.Since(state.StartTime).Seconds())
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// solveStatus reports the current status and results of a solve job.
func (s *Server) solveStatus(id string) (interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("solve_id is required")
	}

	s.solvesMu.RLock()
	defer s.solvesMu.RUnlock()

	state, exists := s.solves[id]
	if !exists {
		return nil, fmt.Errorf("solve not found")
	}

	response := map[string]interface{}{
		"status":      state.Status,
		"solver":      state.Request.Solver,
		"manifold":    state.Request.Manifold,
		"objective":   state.Request.Objective,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}

	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != "" {
		response["error"] = state.Err
	}
	if state.Result != nil {
		response["result"] = map[string]interface{}{
			"point":      state.Result.X,
			"cost":       state.Result.Cost,
			"iterations": state.Result.Iterations,
			"reason":     state.Result.Reason,
		}
	}
	// The cost trace stays available for failed or cancelled runs, but only
	// after the run stops: the solver goroutine appends to it while the
	// status is "running", so the status check must come first.
	if state.Status != "running" && state.CostTrace != nil && len(state.CostTrace.Values) > 0 {
		response["cost_trace"] = state.CostTrace.Values
	}

	return response, nil
}

// cancelSolve cancels a running solve job.
func (s *Server) cancelSolve(id string) error {
	if id == "" {
		return fmt.Errorf("solve_id is required")
	}

	s.solvesMu.Lock()
	defer s.solvesMu.Unlock()

	state, exists := s.solves[id]
	if !exists {
		return fmt.Errorf("solve not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		// Already in a terminal state
		return fmt.Errorf("cannot cancel solve with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Solve cancelled", map[string]interface{}{
		"solve_id": id,
	})
	solvesFinished.WithLabelValues("cancelled").Inc()

	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close cancels all running solves.
func (s *Server) Close() error {
	s.solvesMu.Lock()
	defer s.solvesMu.Unlock()

	for _, st := range s.solves {
		if st.CancelFunc != nil {
			st.CancelFunc()
		}
	}
	return nil
}

// handleSolve handles the HTTP POST /solve endpoint for starting a solve.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startSolve(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles the HTTP GET /solve/:id endpoint.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing solve ID", http.StatusBadRequest)
		return
	}

	result, err := s.solveStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleCancel handles the HTTP DELETE /solve/:id endpoint.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing solve ID", http.StatusBadRequest)
		return
	}

	err := s.cancelSolve(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}
