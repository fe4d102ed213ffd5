package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/strobe/internal/ir"
)

// TokenGenerator produces session tokens.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time - helpful when browsing persisted snapshots.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// BridgeFunc is a legacy callable wrapped by a Bridge node during
// migration from a closure-based predecessor. It receives the frame
// context and produces the node's value directly.
//
// Bridges are transitional: they let old and new node kinds coexist in one
// graph while the closure-based graph is ported, and carry no engine state.
type BridgeFunc func(ctx *FrameContext) float64

// Session is a runtime evaluation session.
//
// The session owns the long-lived pieces: the state arena (persisting
// across many compilations), the frame cache for the currently loaded
// program, the bridge side table, and optional trace hooks. Programs come
// and go via Load and Swap; the session outlives them all.
//
// Thread-safety model: a Session is exclusively owned by one evaluating
// goroutine. A host wanting multi-threaded rendering must fully evaluate
// before handing results to other threads.
type Session struct {
	token string
	state *StateBuffer

	prog     *ir.Program
	progHash string

	// Frame cache: parallel to prog.Nodes. A value is valid only when its
	// stamp equals the current frame's stamp+1 (0 means never computed).
	stamps []int64
	values []float64

	// Deferred delay writes for the frame in flight. Delay operators
	// return last frame's sample immediately and pull their input only
	// after the outermost Evaluate call unwinds, which is what lets a
	// feedback edge route back into the subgraph being evaluated.
	depth    int
	flushing bool
	pending  []pendingWrite

	bridges map[string]BridgeFunc
	trace   *TraceHooks
}

// SessionOption configures a Session at construction.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	tokens TokenGenerator
	trace  *TraceHooks
}

// WithTokenGenerator overrides the session token source.
// Tests use a FixedGenerator for deterministic tokens.
func WithTokenGenerator(g TokenGenerator) SessionOption {
	return func(c *sessionConfig) { c.tokens = g }
}

// WithTrace attaches observational trace hooks. Hooks are purely
// observational and cost nothing when unattached.
func WithTrace(hooks *TraceHooks) SessionOption {
	return func(c *sessionConfig) { c.trace = hooks }
}

// NewSession creates a session with an empty state arena and no program.
func NewSession(opts ...SessionOption) *Session {
	cfg := sessionConfig{tokens: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		token:   cfg.tokens.Generate(),
		state:   NewStateBuffer(),
		bridges: make(map[string]BridgeFunc),
		trace:   cfg.trace,
	}

	slog.Debug("session created", "token", s.token)
	return s
}

// Token returns the session's identity token.
func (s *Session) Token() string { return s.token }

// Program returns the currently loaded program, or nil.
func (s *Session) Program() *ir.Program { return s.prog }

// ProgramHash returns the structural hash of the loaded program, or "".
func (s *Session) ProgramHash() string { return s.progHash }

// State exposes the session's state arena. Primarily for tests and
// persistence; evaluation goes through Evaluate.
func (s *Session) State() *StateBuffer { return s.state }

// RegisterBridge installs a legacy callable under the given key. Bridge
// nodes referencing an unregistered key fail with a contract error.
func (s *Session) RegisterBridge(key string, fn BridgeFunc) {
	s.bridges[key] = fn
}

// Load installs a compiled program.
//
// The frame cache is reallocated for the new node table; the state arena is
// grown to the program's layout (new slots zeroed) but existing contents
// are NOT remapped - offsets from the previous program keep their raw
// values. Hosts that want state carried across a recompile use Swap, which
// performs the identity-based remap.
func (s *Session) Load(prog *ir.Program) {
	s.prog = prog
	s.progHash = ir.ProgramHash(prog)
	s.stamps = make([]int64, len(prog.Nodes))
	s.values = make([]float64, len(prog.Nodes))
	s.pending = s.pending[:0]
	s.state.Grow(prog.Layout.FloatSlots, prog.Layout.IntSlots)

	slog.Info("program loaded",
		"token", s.token,
		"program_hash", s.progHash,
		"nodes", len(prog.Nodes),
		"buses", len(prog.Buses),
		"operators", len(prog.Operators),
		"float_slots", prog.Layout.FloatSlots,
		"int_slots", prog.Layout.IntSlots,
	)
}

// Swap hot-swaps to a newly compiled program, carrying operator state
// across by stable identity: the old program's cells are snapshotted,
// the new program is loaded, and the snapshot is restored under the new
// layout. Operators present in both keep their state (up to the smaller
// of the two cell sizes); new operators start zeroed.
func (s *Session) Swap(prog *ir.Program) error {
	if s.prog == nil {
		s.Load(prog)
		return nil
	}

	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	s.Load(prog)
	if err := s.Restore(snap); err != nil {
		return err
	}

	slog.Info("program hot-swapped",
		"token", s.token,
		"program_hash", s.progHash,
		"carried_cells", len(snap.Cells),
	)
	return nil
}

// ResetState zeroes the entire state arena and invalidates the frame
// cache. The loaded program is unaffected.
func (s *Session) ResetState() {
	s.state.Reset()
	for i := range s.stamps {
		s.stamps[i] = 0
	}
	slog.Debug("state reset", "token", s.token)
}

// EvaluateOutput evaluates a named output declared by the program.
func (s *Session) EvaluateOutput(name string, ctx *FrameContext) (float64, error) {
	if s.prog == nil {
		return 0, &ContractError{Code: ErrCodeNoProgram, Message: "no program loaded", Node: -1}
	}
	root, ok := s.prog.Output(name)
	if !ok {
		return 0, &ContractError{
			Code:    ErrCodeIndexRange,
			Message: "unknown output " + name,
			Node:    -1,
		}
	}
	return s.Evaluate(root, ctx)
}
