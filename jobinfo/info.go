// Package jobinfo implements the observer-side projection: stable
// 0-based indices for instructions and variables, an
// InstructionInfo tree mirroring the live instruction tree, and the
// JobInterfaceAdapter that drives a JobInfoIO port from instruction.UI
// and job.Observer callbacks. The InstructionMap/VariableMap shape gives
// stable indices for pointer-free interchange, for an append-only map
// pattern.
package jobinfo

import (
	"fmt"
	"sync"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/instruction"
)

// InstructionMap assigns a dense, stable, 0-based index to every
// instruction on first exposure.
type InstructionMap struct {
	mu      sync.RWMutex
	indices map[instruction.Instruction]int
	byIndex []instruction.Instruction
}

// NewInstructionMap constructs an empty map.
func NewInstructionMap() *InstructionMap {
	return &InstructionMap{indices: make(map[instruction.Instruction]int)}
}

// IndexFor returns instr's stable index, assigning the next free index on
// first exposure.
func (m *InstructionMap) IndexFor(instr instruction.Instruction) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.indices[instr]; ok {
		return idx
	}
	idx := len(m.byIndex)
	m.indices[instr] = idx
	m.byIndex = append(m.byIndex, instr)
	return idx
}

// InstructionAt returns the instruction at idx, if any.
func (m *InstructionMap) InstructionAt(idx int) (instruction.Instruction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx < 0 || idx >= len(m.byIndex) {
		return nil, false
	}
	return m.byIndex[idx], true
}

// Len returns the number of instructions exposed so far.
func (m *InstructionMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byIndex)
}

// VariableMap is InstructionMap's counterpart for variable names.
type VariableMap struct {
	mu      sync.RWMutex
	indices map[string]int
	byIndex []string
}

// NewVariableMap constructs an empty map.
func NewVariableMap() *VariableMap {
	return &VariableMap{indices: make(map[string]int)}
}

// IndexFor returns name's stable index, assigning one on first exposure.
func (m *VariableMap) IndexFor(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.indices[name]; ok {
		return idx
	}
	idx := len(m.byIndex)
	m.indices[name] = idx
	m.byIndex = append(m.byIndex, name)
	return idx
}

// NameAt returns the variable name at idx, if any.
func (m *VariableMap) NameAt(idx int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx < 0 || idx >= len(m.byIndex) {
		return "", false
	}
	return m.byIndex[idx], true
}

// Len returns the number of variables exposed so far.
func (m *VariableMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byIndex)
}

// InstructionInfo mirrors one node of an instruction tree: its type,
// category, stable index, flattened attribute set, and children.
type InstructionInfo struct {
	Type       string
	Category   instruction.Category
	Index      int
	Attributes map[string]string
	Children   []*InstructionInfo
}

// AppendChild attaches child, enforcing the category arity rule from
// Action accepts no children, Decorator at most one, Compound
// any number.
func (info *InstructionInfo) AppendChild(child *InstructionInfo) error {
	switch info.Category {
	case instruction.Action:
		return fmt.Errorf("jobinfo: %s (Action) cannot accept children", info.Type)
	case instruction.Decorator:
		if len(info.Children) >= 1 {
			return fmt.Errorf("jobinfo: %s (Decorator) already has a child", info.Type)
		}
	}
	info.Children = append(info.Children, child)
	return nil
}

// BuildInstructionInfo walks the live tree rooted at root, assigning
// stable indices through im and recording each node's current
// attributes.
func BuildInstructionInfo(root instruction.Instruction, im *InstructionMap) *InstructionInfo {
	if root == nil {
		return nil
	}
	attrs := make(map[string]string)
	for _, name := range root.Attributes().Names() {
		raw, _ := root.Attributes().Raw(name)
		attrs[name] = raw
	}
	info := &InstructionInfo{
		Type:       root.TypeName(),
		Category:   root.Category(),
		Index:      im.IndexFor(root),
		Attributes: attrs,
	}
	for _, child := range root.Children() {
		info.Children = append(info.Children, BuildInstructionInfo(child, im))
	}
	return info
}

// ToAnyValue serialises the tree InstructionInfo
// round-trip property.
func (info *InstructionInfo) ToAnyValue() anyvalue.Value {
	attrFields := make(map[string]anyvalue.Value, len(info.Attributes))
	for k, v := range info.Attributes {
		attrFields[k] = anyvalue.NewString(v)
	}
	children := make([]anyvalue.Value, len(info.Children))
	for i, c := range info.Children {
		children[i] = c.ToAnyValue()
	}
	return anyvalue.NewStruct("InstructionInfo", map[string]anyvalue.Value{
		"type":       anyvalue.NewString(info.Type),
		"category":   anyvalue.NewString(info.Category.String()),
		"index":      anyvalue.NewNumber(float64(info.Index)),
		"attributes": anyvalue.NewStruct("", attrFields),
		"children":   anyvalue.NewList("", children),
	})
}

// FromAnyValue reconstructs a tree from ToAnyValue's output and validates
// its indices: for N nodes, the index set must be exactly {0, ..., N-1},
//.
func FromAnyValue(v anyvalue.Value) (*InstructionInfo, error) {
	raw, ok := v.AsInterface().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jobinfo: InstructionInfo must be a struct value")
	}
	info, err := fromMap(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateIndices(info); err != nil {
		return nil, err
	}
	return info, nil
}

func fromMap(raw map[string]any) (*InstructionInfo, error) {
	typeName, _ := raw["type"].(string)
	categoryName, _ := raw["category"].(string)
	indexF, ok := raw["index"].(float64)
	if !ok {
		return nil, fmt.Errorf("jobinfo: InstructionInfo missing numeric index")
	}
	info := &InstructionInfo{
		Type:     typeName,
		Category: parseCategory(categoryName),
		Index:    int(indexF),
	}
	if attrsRaw, ok := raw["attributes"].(map[string]any); ok {
		info.Attributes = make(map[string]string, len(attrsRaw))
		for k, av := range attrsRaw {
			s, _ := av.(string)
			info.Attributes[k] = s
		}
	}
	if childrenRaw, ok := raw["children"].([]any); ok {
		for _, cv := range childrenRaw {
			childMap, ok := cv.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("jobinfo: InstructionInfo child must be a struct value")
			}
			child, err := fromMap(childMap)
			if err != nil {
				return nil, err
			}
			if err := info.AppendChild(child); err != nil {
				return nil, &instruction.SetupError{Kind: instruction.KindInvalidOperation, Subject: "InstructionInfo", Cause: err}
			}
		}
	}
	return info, nil
}

func parseCategory(name string) instruction.Category {
	switch name {
	case "Decorator":
		return instruction.Decorator
	case "Compound":
		return instruction.Compound
	default:
		return instruction.Action
	}
}

// ValidateIndices walks tree and checks that its indices are exactly
// {0, ..., N-1} with no duplicates, guarding the InstructionInfo
// round-trip property: any tree with duplicate or out-of-range indices
// fails validation with an error.
func ValidateIndices(tree *InstructionInfo) error {
	seen := make(map[int]bool)
	count := 0
	var walk func(*InstructionInfo)
	walk = func(info *InstructionInfo) {
		count++
		seen[info.Index] = true
		for _, c := range info.Children {
			walk(c)
		}
	}
	walk(tree)
	for i := 0; i < count; i++ {
		if !seen[i] {
			return &instruction.SetupError{Kind: instruction.KindInvalidOperation, Subject: "InstructionInfo",
				Failures: []string{fmt.Sprintf("index %d missing from tree of %d nodes", i, count)}}
		}
	}
	if len(seen) != count {
		return &instruction.SetupError{Kind: instruction.KindInvalidOperation, Subject: "InstructionInfo",
			Failures: []string{"duplicate index in tree"}}
	}
	return nil
}
