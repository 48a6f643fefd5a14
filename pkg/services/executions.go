package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dukex/flowgraph/pkg/analysis"
	"github.com/dukex/flowgraph/pkg/eventbus"
	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/lookup"
	"github.com/dukex/flowgraph/pkg/otelhelper"
	"github.com/dukex/flowgraph/pkg/persistence"
	"github.com/dukex/flowgraph/pkg/scan"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrExecutionNotFound is returned when an execution is not found.
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// Scan modes accepted by the scan endpoint.
const (
	ScanDepthFirst   = "depth-first"
	ScanLinear       = "linear"
	ScanBlockHopping = "block-hopping"
	ScanFork         = "fork"
)

// HealthChecker is implemented by repositories that can report their own
// health, like the file repository.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ExecutionSummary is the condensed view of one stored execution.
type ExecutionSummary struct {
	ID        string   `json:"id"`
	Complete  bool     `json:"complete"`
	NodeCount int      `json:"node_count"`
	HeadIDs   []string `json:"head_ids"`
	Stage     string   `json:"stage,omitempty"`
}

type executionEntry struct {
	exec  *persistence.LoadedExecution
	view  *lookup.View
	stage *analysis.Analyzer[string]
}

// Executions serves queries over stored execution histories. Loaded
// executions are cached together with their lookup view and stage
// analyzer, so repeated queries against the same history reuse the warmed
// caches.
type Executions struct {
	repo   persistence.ExecutionRepository
	bus    eventbus.EventBus
	tracer trace.Tracer

	mu    sync.Mutex
	cache map[string]*executionEntry
}

// NewExecutions creates the execution query service. The event bus is
// optional; when present, uploaded histories are replayed onto it.
func NewExecutions(repo persistence.ExecutionRepository, bus eventbus.EventBus) *Executions {
	return &Executions{
		repo:  repo,
		bus:   bus,
		cache: make(map[string]*executionEntry),
	}
}

// SetTracer enables span emission for scan and upload operations.
func (s *Executions) SetTracer(tracer trace.Tracer) {
	s.tracer = tracer
}

// HealthCheck checks the health of the persistence layer.
func (s *Executions) HealthCheck(ctx context.Context) (string, bool) {
	if s.repo == nil {
		return "Persistence layer not initialized", false
	}

	if checker, ok := s.repo.(HealthChecker); ok {
		if err := checker.HealthCheck(ctx); err != nil {
			return "Persistence layer is unhealthy: " + err.Error(), false
		}
	}

	return "Persistence layer is healthy", true
}

// List returns the identifiers of all stored executions.
func (s *Executions) List(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

func (s *Executions) entry(ctx context.Context, id string) (*executionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.cache[id]; ok {
		return entry, nil
	}

	exec, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := &executionEntry{
		exec:  exec,
		view:  lookup.NewView(exec),
		stage: analysis.NewStageNameAnalyzer(),
	}
	s.cache[id] = entry

	return entry, nil
}

// Summary condenses one execution into its identifying facts plus the
// current stage name, if any stage has run.
func (s *Executions) Summary(ctx context.Context, id string) (*ExecutionSummary, error) {
	entry, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.summarize(entry), nil
}

func (s *Executions) summarize(entry *executionEntry) *ExecutionSummary {
	summary := &ExecutionSummary{
		ID:        entry.exec.ExecutionID(),
		Complete:  entry.exec.IsComplete(),
		NodeCount: len(entry.exec.AllNodes()),
	}

	for _, h := range entry.exec.CurrentHeads() {
		summary.HeadIDs = append(summary.HeadIDs, h.ID())
	}

	if stage, ok := entry.stage.Value(entry.exec); ok {
		summary.Stage = stage
	}

	return summary
}

// Nodes returns every node of an execution in append order.
func (s *Executions) Nodes(ctx context.Context, id string) ([]graph.Node, error) {
	entry, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	return entry.exec.AllNodes(), nil
}

// Node returns one node and whether it is still active.
func (s *Executions) Node(ctx context.Context, id, nodeID string) (graph.Node, bool, error) {
	entry, err := s.entry(ctx, id)
	if err != nil {
		return nil, false, err
	}

	n, err := entry.exec.Node(nodeID)
	if err != nil {
		return nil, false, err
	}

	active, err := entry.view.IsActive(n)
	if err != nil {
		return nil, false, err
	}

	return n, active, nil
}

// Enclosing returns the chain of block starts enclosing a node, innermost
// first.
func (s *Executions) Enclosing(ctx context.Context, id, nodeID string) ([]*graph.BlockStartNode, error) {
	entry, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	n, err := entry.exec.Node(nodeID)
	if err != nil {
		return nil, err
	}

	return entry.view.FindAllEnclosingBlockStarts(n)
}

// Scan walks an execution's history backwards in the given mode. An empty
// fromID starts from the current frontier; stopIDs bound the walk without
// being visited themselves.
func (s *Executions) Scan(ctx context.Context, id, mode, fromID string, stopIDs []string) (nodes []graph.Node, err error) {
	if s.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "executions.scan",
			attribute.String(otelhelper.ExecutionIDKey, id),
			attribute.String(otelhelper.ScanModeKey, mode),
		)

		defer func() {
			if err != nil {
				otelhelper.SetExecutionError(span, id, err)
			}

			span.End()
		}()
	}

	entry, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	scanner, err := scannerForMode(mode)
	if err != nil {
		return nil, err
	}

	heads := entry.exec.CurrentHeads()

	if fromID != "" {
		from, err := entry.exec.Node(fromID)
		if err != nil {
			return nil, NewValidationError("Scan", "invalid_start_node", "unknown start node "+fromID, ErrInvalidStartNode)
		}

		heads = []graph.Node{from}
	}

	stopNodes := make([]graph.Node, 0, len(stopIDs))

	for _, stopID := range stopIDs {
		stop, err := entry.exec.Node(stopID)
		if err != nil {
			return nil, NewValidationError("Scan", "invalid_stop_node", "unknown stop node "+stopID, ErrInvalidStopNode)
		}

		stopNodes = append(stopNodes, stop)
	}

	return scanner.FilteredNodes(heads, stopNodes, nil)
}

func scannerForMode(mode string) (scan.Scanner, error) {
	switch mode {
	case ScanDepthFirst, "":
		return scan.NewDepthFirstScanner(), nil
	case ScanLinear:
		return scan.NewLinearScanner(), nil
	case ScanBlockHopping:
		return scan.NewBlockHoppingScanner(), nil
	case ScanFork:
		return scan.NewForkScanner(), nil
	default:
		return nil, NewValidationError("Scan", "invalid_scan_mode", "unknown scan mode "+mode, ErrInvalidScanMode)
	}
}

// Upload validates a raw dump document, stores it, and returns its
// summary. When an event bus is configured the stored history is replayed
// onto it, so downstream consumers observe uploads the same way they
// observe live executions.
func (s *Executions) Upload(ctx context.Context, raw []byte) (summary *ExecutionSummary, err error) {
	if s.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "executions.upload")

		defer func() {
			if err != nil {
				otelhelper.SetError(span, err)
			}

			span.End()
		}()
	}

	if err := persistence.ValidateRaw(raw); err != nil {
		return nil, err
	}

	var dump persistence.ExecutionDump

	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, &persistence.DumpError{Op: "Upload", Err: persistence.ErrInvalidDump, Message: err.Error()}
	}

	exec, err := persistence.Materialize(&dump)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, &dump); err != nil {
		return nil, err
	}

	entry := &executionEntry{
		exec:  exec,
		view:  lookup.NewView(exec),
		stage: analysis.NewStageNameAnalyzer(),
	}

	s.mu.Lock()
	s.cache[dump.ID] = entry
	s.mu.Unlock()

	if s.bus != nil {
		exec.AddListener(eventbus.NewGraphPublisher(dump.ID, s.bus))
	}

	return s.summarize(entry), nil
}
