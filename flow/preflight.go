package flow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Severity classifies a preflight finding.
type Severity string

const (
	SeverityError   Severity = "error"   // blocks execution
	SeverityWarning Severity = "warning" // proceed with caution
	SeverityInfo    Severity = "info"
)

// Finding is a single preflight result with a user-friendly message and a
// suggested fix.
type Finding struct {
	Code       string         `json:"code"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	NodeID     string         `json:"node_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Result aggregates preflight findings.
type Result struct {
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info"`
}

// IsValid is true when no blocking errors were found.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// HasWarnings is true when at least one warning was found.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

func (r *Result) addError(f Finding) {
	f.Severity = SeverityError
	r.Errors = append(r.Errors, f)
}

func (r *Result) addWarning(f Finding) {
	f.Severity = SeverityWarning
	r.Warnings = append(r.Warnings, f)
}

func (r *Result) addInfo(f Finding) {
	f.Severity = SeverityInfo
	r.Info = append(r.Info, f)
}

// ObjectStatus describes a probed catalog object.
type ObjectStatus struct {
	Exists     bool
	Accessible bool
	Rows       int64
}

// CatalogProber checks data-source objects and stage files against the
// warehouse catalog. Implementations talk to the execution backend; tests
// substitute fakes.
type CatalogProber interface {
	ProbeObject(ctx context.Context, database, schema, object string) (ObjectStatus, error)
	StageFileExists(ctx context.Context, stagePath string) (bool, error)
}

// PreflightConfig tunes the checker.
type PreflightConfig struct {
	// PromptTokenBudget caps the user prompt size; 0 disables the check
	PromptTokenBudget int
	// TokenEncoding names the tiktoken encoding used for prompt budgeting
	TokenEncoding string
}

// DefaultPreflightConfig returns the shipped preflight tuning.
func DefaultPreflightConfig() PreflightConfig {
	return PreflightConfig{
		PromptTokenBudget: 4096,
		TokenEncoding:     "cl100k_base",
	}
}

// Preflight runs the pre-execution checks over a complete graph: structure,
// required nodes, data-source accessibility, semantic model configuration,
// agent configuration, prompt sanity, and output wiring.
type Preflight struct {
	prober  CatalogProber
	cfg     PreflightConfig
	encoder *tiktoken.Tiktoken
	logger  *zap.Logger
}

// NewPreflight creates a preflight checker. prober may be nil, in which case
// catalog probing is skipped (structure-only mode).
func NewPreflight(prober CatalogProber, cfg PreflightConfig, logger *zap.Logger) *Preflight {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Preflight{
		prober: prober,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "preflight")),
	}
	if cfg.PromptTokenBudget > 0 {
		enc, err := tiktoken.GetEncoding(cfg.TokenEncoding)
		if err != nil {
			logger.Warn("token encoding unavailable, prompt budgeting disabled",
				zap.String("encoding", cfg.TokenEncoding), zap.Error(err))
		} else {
			p.encoder = enc
		}
	}
	return p
}

// Check runs every preflight validation. prompt may be empty for a pre-run
// structural check; pass the user's question to include prompt checks.
func (p *Preflight) Check(ctx context.Context, g *Graph, prompt string) *Result {
	result := &Result{}

	p.checkStructure(g, result)
	p.checkRequiredNodes(g, result)
	p.checkDataSources(ctx, g, result)
	p.checkSemanticModels(ctx, g, result)
	p.checkAgents(g, result)
	if prompt != "" || p.hasPromptConsumer(g) {
		p.checkPrompt(prompt, result)
	}
	p.checkOutputs(g, result)

	return result
}

func (p *Preflight) checkStructure(g *Graph, result *Result) {
	if g.NodeCount() == 0 {
		result.addError(Finding{
			Code:       "EMPTY_GRAPH",
			Message:    "No nodes in the workflow",
			Suggestion: "Add nodes to your workflow. Start with a data source, then add an agent and output.",
		})
		return
	}

	connected := make(map[string]bool)
	for _, e := range g.Edges() {
		connected[e.Source] = true
		connected[e.Target] = true
	}

	if g.NodeCount() > 1 {
		for _, n := range g.Nodes() {
			if !connected[n.ID] {
				result.addWarning(Finding{
					Code:       "ORPHAN_NODE",
					Message:    fmt.Sprintf("%q is not connected to any other node", p.label(n)),
					Suggestion: fmt.Sprintf("Connect %q to other nodes, or remove it if not needed.", p.label(n)),
					NodeID:     n.ID,
				})
			}
		}
	}

	hasSource := p.hasCategory(g, CategorySource)
	hasOutput := p.hasCategory(g, CategoryOutput)
	if hasSource && hasOutput && g.EdgeCount() == 0 {
		result.addError(Finding{
			Code:       "NO_EDGES",
			Message:    "Nodes are not connected",
			Suggestion: "Connect your nodes with edges. Data flows from data source to agent to output.",
		})
	}
}

func (p *Preflight) checkRequiredNodes(g *Graph, result *Result) {
	// The migration sub-flow has its own shape; required-node checks apply
	// to the query flow only.
	if p.hasCategory(g, CategoryFileInput) {
		return
	}

	if !p.hasCategory(g, CategorySource) {
		result.addError(Finding{
			Code:       "NO_DATA_SOURCE",
			Message:    "No data source configured",
			Suggestion: "Select a table or view from your warehouse catalog.",
		})
	}
	if !p.hasCategory(g, CategoryAgent) && !p.hasCategory(g, CategoryExternalAgent) {
		result.addError(Finding{
			Code:       "NO_AGENT",
			Message:    "No agent configured",
			Suggestion: "Add an agent node to process natural-language queries against your data.",
		})
	}
	if !p.hasCategory(g, CategoryOutput) {
		result.addError(Finding{
			Code:       "NO_OUTPUT",
			Message:    "No output node configured",
			Suggestion: "Add an output node so results have somewhere to go.",
		})
	}
}

// checkDataSources probes every source node's catalog object. Probes run
// concurrently; findings are collected afterwards to keep Result free of
// locks.
func (p *Preflight) checkDataSources(ctx context.Context, g *Graph, result *Result) {
	sources := p.byCategory(g, CategorySource)
	if len(sources) == 0 {
		return
	}

	type probeOutcome struct {
		node     Node
		fullName string
		status   ObjectStatus
		err      error
		skipped  bool
	}
	outcomes := make([]probeOutcome, len(sources))

	eg, probeCtx := errgroup.WithContext(ctx)
	for i, n := range sources {
		db := n.Config.String("database")
		schema := n.Config.String("schema")
		object := n.Config.String("objectName")
		if object == "" {
			object = n.Config.String("table")
		}

		if db == "" || schema == "" || object == "" {
			result.addError(Finding{
				Code:       "INCOMPLETE_DATA_SOURCE",
				Message:    "Data source is missing database, schema, or table name",
				Suggestion: "Select a complete data source from the catalog.",
				NodeID:     n.ID,
				Details:    map[string]any{"database": db, "schema": schema, "object": object},
			})
			outcomes[i] = probeOutcome{skipped: true}
			continue
		}
		if p.prober == nil {
			outcomes[i] = probeOutcome{skipped: true}
			continue
		}

		fullName := fmt.Sprintf("%s.%s.%s", db, schema, object)
		eg.Go(func() error {
			status, err := p.prober.ProbeObject(probeCtx, db, schema, object)
			outcomes[i] = probeOutcome{node: n, fullName: fullName, status: status, err: err}
			return nil
		})
	}
	// Goroutines only record outcomes, they never fail the group.
	_ = eg.Wait()

	for _, o := range outcomes {
		if o.skipped {
			continue
		}
		switch {
		case o.err != nil:
			result.addWarning(Finding{
				Code:       "DATA_SOURCE_CHECK_FAILED",
				Message:    fmt.Sprintf("Could not validate data source %q", o.fullName),
				Suggestion: "The data source may still work. Try running your query.",
				NodeID:     o.node.ID,
				Details:    map[string]any{"error": o.err.Error()},
			})
		case !o.status.Exists:
			result.addError(Finding{
				Code:       "TABLE_NOT_FOUND",
				Message:    fmt.Sprintf("Table %q does not exist", o.fullName),
				Suggestion: "Verify the table name is correct and that it exists in the warehouse.",
				NodeID:     o.node.ID,
			})
		case !o.status.Accessible:
			result.addError(Finding{
				Code:       "TABLE_NO_ACCESS",
				Message:    fmt.Sprintf("No permission to access %q", o.fullName),
				Suggestion: fmt.Sprintf("Ask your warehouse admin to grant SELECT on %s to your role.", o.fullName),
				NodeID:     o.node.ID,
			})
		case o.status.Rows == 0:
			result.addWarning(Finding{
				Code:       "TABLE_EMPTY",
				Message:    fmt.Sprintf("Table %q has no data", o.fullName),
				Suggestion: "Queries will return empty results. Load data into the table first.",
				NodeID:     o.node.ID,
			})
		default:
			result.addInfo(Finding{
				Code:    "TABLE_OK",
				Message: fmt.Sprintf("Data source %q verified (%d rows)", o.fullName, o.status.Rows),
				NodeID:  o.node.ID,
			})
		}
	}
}

func (p *Preflight) checkSemanticModels(ctx context.Context, g *Graph, result *Result) {
	for _, n := range p.byCategory(g, CategorySemanticContext) {
		path := n.Config.String("semanticPath")
		if path == "" {
			path = n.Config.String("path")
		}
		name := p.label(n)

		if path == "" {
			result.addError(Finding{
				Code:       "NO_SEMANTIC_PATH",
				Message:    fmt.Sprintf("Semantic model %q has no file path configured", name),
				Suggestion: "Select a semantic model YAML file from the catalog, or specify the stage path.",
				NodeID:     n.ID,
			})
			continue
		}

		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			result.addWarning(Finding{
				Code:       "INVALID_SEMANTIC_EXTENSION",
				Message:    "Semantic model path should end with .yaml or .yml",
				Suggestion: fmt.Sprintf("Check the file path: %s", path),
				NodeID:     n.ID,
			})
		}

		if !strings.HasPrefix(path, "@") {
			result.addWarning(Finding{
				Code:       "SEMANTIC_PATH_FORMAT",
				Message:    "Semantic model path should reference a warehouse stage",
				Suggestion: "Expected format: @DATABASE.SCHEMA.STAGE_NAME/file.yaml",
				NodeID:     n.ID,
				Details:    map[string]any{"current_path": path},
			})
			continue
		}

		if p.prober != nil {
			exists, err := p.prober.StageFileExists(ctx, path)
			if err != nil {
				result.addWarning(Finding{
					Code:       "SEMANTIC_VALIDATION_SKIPPED",
					Message:    fmt.Sprintf("Could not validate semantic model: %s", err),
					Suggestion: "The semantic model may still work. Verify the path is correct.",
					NodeID:     n.ID,
				})
			} else if !exists {
				result.addWarning(Finding{
					Code:       "SEMANTIC_FILE_NOT_FOUND",
					Message:    fmt.Sprintf("Could not find semantic model file at %s", path),
					Suggestion: "Verify the file exists in the stage. You may need to upload it first.",
					NodeID:     n.ID,
				})
			}
		}
	}
}

func (p *Preflight) checkAgents(g *Graph, result *Result) {
	for _, n := range p.byCategory(g, CategoryAgent) {
		name := p.label(n)

		if n.Config.String("model") == "" {
			result.addWarning(Finding{
				Code:       "NO_MODEL_SELECTED",
				Message:    fmt.Sprintf("Agent %q has no model selected", name),
				Suggestion: "A default model will be used. For better results, select a specific model.",
				NodeID:     n.ID,
			})
		}

		hasDataInput := false
		hasAnyInput := false
		for _, e := range g.Incoming(n.ID) {
			hasAnyInput = true
			if cat, ok := g.Category(e.Source); ok {
				if cat == CategorySource || cat == CategorySemanticContext {
					hasDataInput = true
				}
			}
		}
		if !hasDataInput && !hasAnyInput && g.NodeCount() > 1 {
			result.addWarning(Finding{
				Code:       "AGENT_NO_DATA_INPUT",
				Message:    fmt.Sprintf("Agent %q is not connected to a data source", name),
				Suggestion: "Connect a data source or semantic model to the agent for data-grounded responses.",
				NodeID:     n.ID,
			})
		}
	}
}

var garbagePromptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^test+$`),
	regexp.MustCompile(`^asdf`),
	regexp.MustCompile(`^[a-z]{1,3}$`),
	regexp.MustCompile(`^hello+$`),
	regexp.MustCompile(`^hi+$`),
}

func (p *Preflight) checkPrompt(prompt string, result *Result) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		result.addError(Finding{
			Code:       "NO_PROMPT",
			Message:    "No question provided",
			Suggestion: "Enter a question to ask your agent.",
		})
		return
	}

	if len(prompt) < 5 {
		result.addWarning(Finding{
			Code:       "PROMPT_TOO_SHORT",
			Message:    "Your question is very short",
			Suggestion: "Try asking a more detailed question. Example: 'What are total sales by region?'",
		})
	}

	lower := strings.ToLower(prompt)
	for _, pattern := range garbagePromptPatterns {
		if pattern.MatchString(lower) {
			result.addWarning(Finding{
				Code:       "PROMPT_MAY_BE_TEST",
				Message:    "This looks like a test query",
				Suggestion: "For meaningful results, ask a business question about your data.",
			})
			break
		}
	}

	if p.encoder != nil && p.cfg.PromptTokenBudget > 0 {
		tokens := len(p.encoder.Encode(prompt, nil, nil))
		if tokens > p.cfg.PromptTokenBudget {
			result.addWarning(Finding{
				Code:       "PROMPT_TOO_LONG",
				Message:    fmt.Sprintf("Your question is %d tokens, over the %d token budget", tokens, p.cfg.PromptTokenBudget),
				Suggestion: "Shorten the question; overlong prompts are truncated by the model.",
				Details:    map[string]any{"tokens": tokens, "budget": p.cfg.PromptTokenBudget},
			})
		}
	}
}

func (p *Preflight) checkOutputs(g *Graph, result *Result) {
	for _, n := range p.byCategory(g, CategoryOutput) {
		if len(g.Incoming(n.ID)) == 0 {
			result.addError(Finding{
				Code:       "OUTPUT_DISCONNECTED",
				Message:    fmt.Sprintf("Output %q has no input connection", p.label(n)),
				Suggestion: "Connect an agent to the output node.",
				NodeID:     n.ID,
			})
		}
	}
}

func (p *Preflight) hasPromptConsumer(g *Graph) bool {
	return p.hasCategory(g, CategoryAgent) || p.hasCategory(g, CategorySupervisor)
}

func (p *Preflight) hasCategory(g *Graph, cat NodeCategory) bool {
	for _, n := range g.Nodes() {
		if n.Category == cat {
			return true
		}
	}
	return false
}

func (p *Preflight) byCategory(g *Graph, cat NodeCategory) []Node {
	var out []Node
	for _, n := range g.Nodes() {
		if n.Category == cat {
			out = append(out, n)
		}
	}
	return out
}

func (p *Preflight) label(n Node) string {
	if n.Label != "" {
		return n.Label
	}
	if name := n.Config.String("name"); name != "" {
		return name
	}
	return string(n.Category)
}
