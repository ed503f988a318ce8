// Package simulate drives stepwise execution: a session freezes a snapshot
// of the workflow, individual nodes are executed one at a time against the
// external executor collaborator, and each node's last result is cached.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantsight/flowcanvas/internal/executor"
	"github.com/quantsight/flowcanvas/internal/metrics"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// Status is a node's execution state within a session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is a node's cached execution envelope. Ephemeral and
// session-scoped; never persisted with the workflow definition.
type Result struct {
	NodeID          string         `json:"nodeId"`
	Input           map[string]any `json:"input,omitempty"`
	Output          map[string]any `json:"output,omitempty"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMs int64          `json:"executionTimeMs,omitempty"`
	Status          Status         `json:"status"`
}

type session struct {
	id  string
	def workflow.Definition

	mu      sync.Mutex
	results map[string]*Result
}

// copyResult returns a shallow copy safe to hand to callers.
func copyResult(r *Result) Result { return *r }

type execJob struct {
	sess    *session
	nodeID  string
	resultC chan Result
}

// Options tunes the orchestrator's execution pool.
type Options struct {
	Workers    int
	QueueDepth int
}

// Orchestrator owns every live simulation session.
type Orchestrator struct {
	mu       sync.RWMutex
	sessions map[string]*session
	registry *executor.Registry
	pool     *pool[*execJob]
}

// New creates an Orchestrator and starts its execution pool.
func New(ctx context.Context, reg *executor.Registry, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 64
	}
	o := &Orchestrator{
		sessions: make(map[string]*session),
		registry: reg,
	}
	o.pool = newPool(ctx, opts.Workers, opts.QueueDepth, func(ctx context.Context, j *execJob) {
		res := o.runNode(ctx, j.sess, j.nodeID)
		if j.resultC != nil {
			j.resultC <- res
		}
	})
	return o
}

// CreateSession snapshots the definition and returns a new session id. The
// snapshot is a deep copy: later live edits never change what a running
// session sees.
func (o *Orchestrator) CreateSession(def workflow.Definition) string {
	s := &session{
		id:      uuid.New().String(),
		def:     def.Clone(),
		results: make(map[string]*Result, len(def.Nodes)),
	}
	for _, n := range s.def.Nodes {
		s.results[n.ID] = &Result{NodeID: n.ID, Status: StatusPending}
	}
	o.mu.Lock()
	o.sessions[s.id] = s
	o.mu.Unlock()
	slog.Debug("simulation session created", "session_id", s.id, "nodes", len(s.def.Nodes))
	return s.id
}

// ExecuteNode dispatches a single node to the executor collaborator exactly
// once and waits for its result envelope. A failure is recorded per node and
// never touches sibling nodes' cached results. If ctx expires first, the
// execution keeps running in the pool and the cache is still updated when it
// resolves; the node reads as running until then.
func (o *Orchestrator) ExecuteNode(ctx context.Context, sessionID, nodeID string) (Result, error) {
	s, err := o.session(sessionID)
	if err != nil {
		return Result{}, err
	}
	if s.def.Node(nodeID) == nil {
		return Result{}, fmt.Errorf("node %q not in session snapshot", nodeID)
	}

	resultC := make(chan Result, 1)
	if !o.pool.submit(&execJob{sess: s, nodeID: nodeID, resultC: resultC}) {
		return Result{}, fmt.Errorf("simulation queue full")
	}

	select {
	case res := <-resultC:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Results returns a copy of the session's per-node cache. Safe to poll.
func (o *Orchestrator) Results(sessionID string) (map[string]Result, error) {
	s, err := o.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Result, len(s.results))
	for id, r := range s.results {
		out[id] = copyResult(r)
	}
	return out, nil
}

// Discard drops a single session.
func (o *Orchestrator) Discard(sessionID string) {
	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()
}

// DiscardAll drops every session; used when the active workflow switches.
func (o *Orchestrator) DiscardAll() {
	o.mu.Lock()
	o.sessions = make(map[string]*session)
	o.mu.Unlock()
}

// Shutdown drains the execution pool.
func (o *Orchestrator) Shutdown() {
	o.pool.drain()
}

func (o *Orchestrator) session(id string) (*session, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	if !ok {
		return nil, fmt.Errorf("simulation session %q not found", id)
	}
	return s, nil
}

// runNode performs the Running → Completed|Failed transition for one node.
// Re-execution overwrites the previous cached result; no history is kept.
func (o *Orchestrator) runNode(ctx context.Context, s *session, nodeID string) Result {
	node := s.def.Node(nodeID)
	inputs := o.resolveInputs(s, nodeID)

	s.mu.Lock()
	s.results[nodeID] = &Result{NodeID: nodeID, Input: inputs, Status: StatusRunning}
	s.mu.Unlock()

	start := time.Now()
	var (
		output  map[string]any
		execErr error
	)
	exec, err := o.registry.Get(node.Type)
	if err != nil {
		execErr = err
	} else {
		output, execErr = exec.Execute(ctx, *node, inputs)
	}
	elapsed := time.Since(start).Milliseconds()

	res := &Result{
		NodeID:          nodeID,
		Input:           inputs,
		Output:          output,
		ExecutionTimeMs: elapsed,
		Status:          StatusCompleted,
	}
	status := "completed"
	if execErr != nil {
		res.Status = StatusFailed
		res.Error = execErr.Error()
		status = "failed"
		slog.Debug("node execution failed", "session_id", s.id, "node_id", nodeID, "err", execErr)
	}

	metrics.NodeExecutions.WithLabelValues(string(node.Type), status).Inc()
	metrics.NodeExecutionDuration.Observe(float64(elapsed))

	// Per-node entry only; concurrent completions never touch each other.
	s.mu.Lock()
	s.results[nodeID] = res
	s.mu.Unlock()
	return copyResult(res)
}

// resolveInputs gathers the completed outputs of the node's upstream
// neighbors in the session snapshot, keyed by upstream node id.
func (o *Orchestrator) resolveInputs(s *session, nodeID string) map[string]any {
	inputs := make(map[string]any)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.def.Edges {
		if e.Target != nodeID {
			continue
		}
		if r, ok := s.results[e.Source]; ok && r.Status == StatusCompleted && r.Output != nil {
			inputs[e.Source] = r.Output
		}
	}
	return inputs
}
