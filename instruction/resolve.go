package instruction

import (
	"fmt"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/workspace"
)

// GetAttributeValue resolves the named attribute against ws/ui, implementing
// get_attribute_value. If the attribute is absent, ok is true and
// value is the zero Value (the caller interprets absence as "optional not
// set"). If present, the attribute's category/sigil decides whether the
// string is resolved as a workspace path or parsed as a literal of its
// declared type; a resolution failure logs an error to ui and returns
// ok=false.
func (b *Base) GetAttributeValue(name string, ws *workspace.Workspace, ui UI) (value anyvalue.Value, ok bool) {
	raw, present := b.attrs.Raw(name)
	if !present {
		return anyvalue.Value{}, true
	}
	def, _ := b.attrs.Definition(name)
	path, isRef := attrs.IsVariableReference(def.Category, raw)
	if isRef {
		v, err := ws.GetValue(path)
		if err != nil {
			logError(ui, b.typeName, name, err)
			return anyvalue.Value{}, false
		}
		return v, true
	}
	v, err := attrs.ParseLiteral(def.Type, raw)
	if err != nil {
		logError(ui, b.typeName, name, err)
		return anyvalue.Value{}, false
	}
	return v, true
}

// GetAttributeValueAsBool is the typed variant from it resolves
// the attribute, then converts AnyValue → bool. An absent attribute yields
// (false, true); a conversion failure logs a warning and returns ok=false.
func (b *Base) GetAttributeValueAsBool(name string, ws *workspace.Workspace, ui UI) (value bool, ok bool) {
	v, resolved := b.GetAttributeValue(name, ws, ui)
	if !resolved {
		return false, false
	}
	if v.IsEmpty() {
		return false, true
	}
	bv, err := v.ToBool()
	if err != nil {
		logWarning(ui, b.typeName, name, err)
		return false, false
	}
	return bv, true
}

// GetAttributeValueAsIndex is the typed variant converting AnyValue → int,
// used by attributes like maxCount.
func (b *Base) GetAttributeValueAsIndex(name string, ws *workspace.Workspace, ui UI) (value int, ok bool) {
	v, resolved := b.GetAttributeValue(name, ws, ui)
	if !resolved {
		return 0, false
	}
	if v.IsEmpty() {
		return 0, true
	}
	idx, err := v.ToIndex()
	if err != nil {
		logWarning(ui, b.typeName, name, err)
		return 0, false
	}
	return idx, true
}

// GetAttributeValueAsFloat is the typed variant converting AnyValue →
// float64, used by timeout attributes (Wait, WaitForVariable,
// WaitForVariables).
func (b *Base) GetAttributeValueAsFloat(name string, ws *workspace.Workspace, ui UI) (value float64, ok bool) {
	v, resolved := b.GetAttributeValue(name, ws, ui)
	if !resolved {
		return 0, false
	}
	if v.IsEmpty() {
		return 0, true
	}
	fv, err := v.ToFloat()
	if err != nil {
		logWarning(ui, b.typeName, name, err)
		return 0, false
	}
	return fv, true
}

// AttributePath returns the workspace path a VariableName or Both (when
// @-prefixed) attribute refers to, stripping the reference sigil. Unlike
// GetAttributeValue, this never resolves the path to a value: it is for
// instructions (Copy, Increment, ResetVariable, AddElement...) that need a
// destination to write to rather than a value to read.
func (b *Base) AttributePath(name string) (path string, ok bool) {
	raw, present := b.attrs.Raw(name)
	if !present {
		return "", false
	}
	def, _ := b.attrs.Definition(name)
	path, isRef := attrs.IsVariableReference(def.Category, raw)
	if !isRef {
		return raw, true
	}
	return path, true
}

func logError(ui UI, typeName, attr string, err error) {
	if ui == nil {
		return
	}
	ui.Log(SeverityError, fmt.Sprintf("%s: resolving attribute %q: %v", typeName, attr, err))
}

func logWarning(ui UI, typeName, attr string, err error) {
	if ui == nil {
		return
	}
	ui.Log(SeverityWarning, fmt.Sprintf("%s: converting attribute %q: %v", typeName, attr, err))
}
