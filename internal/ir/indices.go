package ir

// Dense index types for the compiled graph.
//
// Every cross-reference in a Program is one of these integer indices into a
// flat table. Distinct types prevent a bus index from being handed to a node
// lookup by accident; the compiler assigns them, the engine trusts them.

// NodeIndex identifies one entry in Program.Nodes.
type NodeIndex int

// NoNode marks an absent operand reference (e.g. an Integrate with no input).
const NoNode NodeIndex = -1

// ConstIndex identifies one entry in the constant pool (Program.Consts).
type ConstIndex int

// BusIndex identifies one entry in Program.Buses.
type BusIndex int

// ChainIndex identifies one entry in Program.Chains.
type ChainIndex int

// OperatorIndex identifies one entry in Program.Operators.
type OperatorIndex int

// BridgeIndex identifies one entry in Program.Bridges.
type BridgeIndex int

// SlotKey identifies an external input slot resolved by the host's
// external value resolver. Keys are dense and compiler-assigned.
type SlotKey int

// FloatOffset addresses a slot in the numeric lane of the state arena.
type FloatOffset int

// IntOffset addresses a slot in the integer lane of the state arena.
type IntOffset int
