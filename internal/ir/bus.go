package ir

import "fmt"

// CombineMode selects how a bus folds its contributors into one value.
type CombineMode uint8

const (
	CombineSum CombineMode = iota
	CombineAverage
	CombineMin
	CombineMax
	CombineFirst
	CombineLast
)

var combineNames = map[CombineMode]string{
	CombineSum:     "sum",
	CombineAverage: "average",
	CombineMin:     "min",
	CombineMax:     "max",
	CombineFirst:   "first",
	CombineLast:    "last",
}

// String returns the mode name for diagnostics and documents.
func (m CombineMode) String() string {
	if name, ok := combineNames[m]; ok {
		return name
	}
	return fmt.Sprintf("CombineMode(%d)", uint8(m))
}

// ParseCombineMode resolves a document-level combine mode name.
func ParseCombineMode(name string) (CombineMode, error) {
	for m, n := range combineNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown combine mode %q", name)
}

// BusDescriptor is a compiled aggregation point.
//
// Contributors is in final evaluation order, decided once at compile time by
// priority key then stable identity. The engine trusts this order and NEVER
// re-sorts at runtime.
type BusDescriptor struct {
	// Name is the bus's document-level name, kept for traces and diagnostics.
	Name string `json:"name"`

	// Contributors lists contributor nodes in compiler-assigned order.
	Contributors []NodeIndex `json:"contributors"`

	// Mode selects the combine function.
	Mode CombineMode `json:"mode"`

	// Default is returned when Contributors is empty, without evaluating
	// anything. Zero unless the document configures otherwise.
	Default float64 `json:"default"`
}
