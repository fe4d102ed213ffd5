package ir

// Version constants for compiled artifacts and persisted snapshots.
const (
	// IRVersion is the schema version of the compiled Program.
	IRVersion = "1.0"

	// EngineVersion is the engine implementation version recorded on
	// persisted snapshots.
	EngineVersion = "0.1.0"
)

// Program is a compiled, immutable signal graph.
//
// Nodes is append-only and dense: NodeIndex i refers to Nodes[i]. A Program
// is produced once per successful compilation and read-only thereafter;
// recompilation produces a new Program, it never mutates an existing one.
// The engine may therefore read every table without locking.
type Program struct {
	// Nodes is the flat expression node table.
	Nodes []Node `json:"nodes"`

	// Consts is the deduplicated constant pool.
	Consts []float64 `json:"consts"`

	// Buses holds compiled bus descriptors, contributor order baked in.
	Buses []BusDescriptor `json:"buses,omitempty"`

	// Chains holds compiled transform chains.
	Chains []TransformChain `json:"chains,omitempty"`

	// Operators holds stateful operator instances.
	Operators []StatefulSpec `json:"operators,omitempty"`

	// Bridges lists legacy-callable keys referenced by Bridge nodes. The
	// callables themselves live in a session side table; the program only
	// carries the keys.
	Bridges []string `json:"bridges,omitempty"`

	// Outputs maps document-level output names to their root nodes.
	// Hosts evaluate whichever of these they need each frame.
	Outputs map[string]NodeIndex `json:"outputs,omitempty"`

	// Slots maps document-level external input names to slot keys. The
	// engine itself resolves inputs purely by SlotKey; the name table is
	// for hosts wiring resolvers and for scenario tooling.
	Slots map[string]SlotKey `json:"slots,omitempty"`

	// Layout describes the state arena this program requires.
	Layout StateLayout `json:"layout"`
}

// Output returns the root node for a named output, if declared.
func (p *Program) Output(name string) (NodeIndex, bool) {
	idx, ok := p.Outputs[name]
	return idx, ok
}

// Slot returns the slot key for a named external input, if declared.
func (p *Program) Slot(name string) (SlotKey, bool) {
	key, ok := p.Slots[name]
	return key, ok
}
