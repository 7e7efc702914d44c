package variable

import (
	"fmt"
	"strconv"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
)

// Local is the in-process reference Variable back-end. It stores an
// AnyValue constructed from its "type"/"value"
// attributes; if "dynamicType" is true, a later SetValue may reassign the
// stored type rather than requiring an exact match.
type Local struct {
	base
	attrs       *attrs.Handler
	dynamicType bool
}

// NewLocal constructs an unconfigured Local variable.
func NewLocal() *Local {
	h := attrs.New()
	h.Define("type", attrs.Definition{Category: attrs.Literal})
	h.Define("value", attrs.Definition{Category: attrs.Literal})
	h.Define("dynamicType", attrs.Definition{Category: attrs.Literal, Type: "bool"})
	return &Local{attrs: h}
}

func (l *Local) TypeName() string          { return "Local" }
func (l *Local) Attributes() *attrs.Handler { return l.attrs }

// Setup constructs the stored value from the (type, value) attributes. If
// "type" is absent, the variable starts empty.
func (l *Local) Setup() ([]SetupAction, error) {
	if raw, ok := l.attrs.Raw("dynamicType"); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("variable: Local dynamicType attribute: %w", err)
		}
		l.dynamicType = b
	}

	typeName, hasType := l.attrs.Raw("type")
	if !hasType {
		l.publish(anyvalue.Empty(), false)
		return nil, nil
	}
	rawValue, _ := l.attrs.Raw("value")
	v, err := attrs.ParseLiteral(typeName, rawValue)
	if err != nil {
		return nil, fmt.Errorf("variable: Local setup: %w", err)
	}
	l.publish(v, true)
	return nil, nil
}

func (l *Local) Reset() {
	// Re-derive the initial value from the declared attributes; errors at
	// this point were already surfaced during the original Setup.
	_, _ = l.Setup()
}

func (l *Local) Teardown() {
	l.publish(anyvalue.Empty(), false)
}

func (l *Local) Clear() {
	l.publish(anyvalue.Empty(), false)
}

// GetValue reads the stored value, optionally narrowed to a sub-path.
func (l *Local) GetValue(field string) (anyvalue.Value, error) {
	if !l.IsAvailable() {
		return anyvalue.Value{}, ErrNotAvailable
	}
	return l.rawValue().GetField(field)
}

// SetValue assigns value at field. For the whole-value case (field == ""),
// an empty or dynamically-typed variable accepts any type; otherwise the
// incoming value's kind must match the currently stored kind.
func (l *Local) SetValue(value anyvalue.Value, field string) error {
	current := l.rawValue()
	if field == "" {
		if current.IsEmpty() || l.dynamicType {
			l.publish(value, true)
			return nil
		}
		if current.Kind() != value.Kind() {
			return fmt.Errorf("variable: Local: cannot assign %s to stored %s (dynamicType not set)", value.Kind(), current.Kind())
		}
		l.publish(value, true)
		return nil
	}
	updated, err := current.SetField(field, value)
	if err != nil {
		return fmt.Errorf("variable: Local: %w", err)
	}
	l.publish(updated, true)
	return nil
}
