// Package attrs implements the AttributeHandler described in a
// string-keyed attribute bag with typed definitions, constraint validation,
// placeholder substitution, and the variable-reference sigil convention used
// to decide whether an attribute string names a workspace path or is parsed
// as a literal.
package attrs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/oac-tree/sequencer/anyvalue"
)

// Category classifies how an attribute's string form is interpreted at
// resolution time.
type Category int

const (
	// Literal attributes are always parsed as a value of the declared type.
	Literal Category = iota
	// VariableName attributes always name a workspace field.
	VariableName
	// Both defers the choice to the sigil at resolution time.
	Both
)

func (c Category) String() string {
	switch c {
	case VariableName:
		return "VariableName"
	case Both:
		return "Both"
	default:
		return "Literal"
	}
}

// Definition describes one declared attribute: its expected dynamic type
// name, whether it is mandatory, and its resolution category.
type Definition struct {
	Type      string
	Mandatory bool
	Category  Category
}

// DefaultPlaceholderSigil is the character that marks a late-bound
// placeholder attribute.
const DefaultPlaceholderSigil = '$'

// VariableSigil marks an attribute string as a workspace field reference
// when the attribute's category is VariableName or Both.
const VariableSigil = '@'

// Handler holds an instruction's or variable's string attributes alongside
// their declared definitions. The zero Handler is not usable; use New.
type Handler struct {
	mu               sync.RWMutex
	values           map[string]string
	order            []string
	defs             map[string]Definition
	placeholderSigil byte
}

// New constructs an empty Handler with the default placeholder sigil.
func New() *Handler {
	return &Handler{
		values:           make(map[string]string),
		defs:             make(map[string]Definition),
		placeholderSigil: DefaultPlaceholderSigil,
	}
}

// Define registers (or overwrites) the definition for an attribute name.
// Definitions are metadata only; they do not themselves insert a value.
func (h *Handler) Define(name string, def Definition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.defs[name] = def
}

// Definition returns the declared definition for name, if any.
func (h *Handler) Definition(name string) (Definition, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.defs[name]
	return d, ok
}

// AddAttribute inserts name=value only if name is currently absent. Returns
// true if the insertion happened.
func (h *Handler) AddAttribute(name, value string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.values[name]; exists {
		return false
	}
	h.values[name] = value
	h.order = append(h.order, name)
	return true
}

// SetAttribute replaces name's value only if name is currently present.
// Returns true if the replacement happened.
func (h *Handler) SetAttribute(name, value string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.values[name]; !exists {
		return false
	}
	h.values[name] = value
	return true
}

// Has reports whether name currently has a string value.
func (h *Handler) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.values[name]
	return ok
}

// Raw returns the stored string for name and whether it is present.
func (h *Handler) Raw(name string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[name]
	return v, ok
}

// Names returns attribute names in insertion order.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// GetValueAs parses the stored string for name as a value of its declared
// type "get_value_as<T> parses the stored string via the
// type registry." Returns false if the attribute is absent.
func (h *Handler) GetValueAs(name string) (anyvalue.Value, bool, error) {
	raw, ok := h.Raw(name)
	if !ok {
		return anyvalue.Value{}, false, nil
	}
	def, _ := h.Definition(name)
	v, err := ParseLiteral(def.Type, raw)
	if err != nil {
		return anyvalue.Value{}, true, err
	}
	return v, true, nil
}

// IsVariableReference reports whether raw, under category, should be
// resolved as a workspace path rather than parsed as a literal, returning
// the path with any leading sigil stripped.
func IsVariableReference(category Category, raw string) (path string, isRef bool) {
	switch category {
	case VariableName:
		return strings.TrimPrefix(raw, string(VariableSigil)), true
	case Both:
		if strings.HasPrefix(raw, string(VariableSigil)) {
			return raw[1:], true
		}
		return raw, false
	default:
		return raw, false
	}
}

// IsPlaceholder reports whether raw is a late-bound placeholder under the
// handler's configured sigil, and returns the placeholder key (without the
// sigil).
func (h *Handler) IsPlaceholder(raw string) (key string, ok bool) {
	h.mu.RLock()
	sigil := h.placeholderSigil
	h.mu.RUnlock()
	if len(raw) < 2 || raw[0] != sigil {
		return "", false
	}
	return raw[1:], true
}

// InitialisePlaceholderAttributes substitutes every attribute value of the
// form "$X" with the literal string value of src's "X" attribute, if
// present. Unresolvable placeholders are left untouched so
// Include can forward unknown keys without failing validation.
func (h *Handler) InitialisePlaceholderAttributes(src *Handler) {
	h.mu.Lock()
	names := make([]string, len(h.order))
	copy(names, h.order)
	h.mu.Unlock()

	for _, name := range names {
		raw, _ := h.Raw(name)
		key, ok := h.IsPlaceholder(raw)
		if !ok {
			continue
		}
		if resolved, present := src.Raw(key); present {
			h.mu.Lock()
			h.values[name] = resolved
			h.mu.Unlock()
		}
	}
}

// ValidateAttributes evaluates every constraint against this handler and
// returns whether all passed, along with a description of each failure,
// as an (ok, failed_constraints) pair.
func (h *Handler) ValidateAttributes(constraints []Constraint) (bool, []string) {
	var failed []string
	for _, c := range constraints {
		if err := c.Evaluate(h); err != nil {
			failed = append(failed, err.Error())
		}
	}
	return len(failed) == 0, failed
}

// ValidateMandatory checks that every definition marked Mandatory has a
// value present, returning the names that are missing.
func (h *Handler) ValidateMandatory() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var missing []string
	for name, def := range h.defs {
		if !def.Mandatory {
			continue
		}
		if _, ok := h.values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// ParseLiteral parses raw as a value of the named JSON-ish type. An empty
// typeName falls back to string passthrough so untyped attributes (e.g.
// free-form text attributes like Message's "text") still resolve.
func ParseLiteral(typeName, raw string) (anyvalue.Value, error) {
	switch typeName {
	case "", "string":
		return anyvalue.NewString(raw), nil
	case "bool", "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return anyvalue.Value{}, fmt.Errorf("attrs: %q is not a bool: %w", raw, err)
		}
		return anyvalue.NewBool(b), nil
	case "int8", "int16", "int32", "int64", "int",
		"uint8", "uint16", "uint32", "uint64", "uint",
		"float32", "float64", "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return anyvalue.Value{}, fmt.Errorf("attrs: %q is not a %s: %w", raw, typeName, err)
		}
		return anyvalue.New(typeName, f)
	default:
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return anyvalue.Value{}, fmt.Errorf("attrs: %q is not valid %s JSON: %w", raw, typeName, err)
		}
		return anyvalue.New(typeName, data)
	}
}
