// Package anyvalue implements AnyValue, the engine's dynamically-typed
// value: an opaque value with a small, closed operator set {get_field,
// set_field, compare, assign, increment, to_bool, to_index}. This package
// supplies the minimal concrete implementation the rest of the core needs
// to compile and run against, backed by protobuf's structpb union of
// null/bool/number/string/struct/list.
package anyvalue

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Kind identifies which variant a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindStruct
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindList:
		return "array"
	default:
		return "empty"
	}
}

// Value is a dynamically-typed cell. The zero Value is empty (KindNull) and
// carries no type name, matching the Local variable's rule that it starts
// empty when no type attribute is given.
type Value struct {
	pb       *structpb.Value
	typeName string
}

// Empty returns the empty Value (no type, no content).
func Empty() Value { return Value{} }

// IsEmpty reports whether the value has never been assigned content.
func (v Value) IsEmpty() bool { return v.pb == nil }

// TypeName returns the declared JSON type name carried alongside the value
// (e.g. "uint32", "bool", "string"), as set by New or Assign. Empty if unset.
func (v Value) TypeName() string { return v.typeName }

// Kind returns the variant currently stored.
func (v Value) Kind() Kind {
	if v.pb == nil {
		return KindNull
	}
	switch v.pb.GetKind().(type) {
	case *structpb.Value_NullValue:
		return KindNull
	case *structpb.Value_BoolValue:
		return KindBool
	case *structpb.Value_NumberValue:
		return KindNumber
	case *structpb.Value_StringValue:
		return KindString
	case *structpb.Value_StructValue:
		return KindStruct
	case *structpb.Value_ListValue:
		return KindList
	default:
		return KindNull
	}
}

// New builds a Value from a plain Go value (bool, float64/int family, string,
// map[string]any, []any, or nil) and an explicit type name. Mirrors the Local
// variable's construction from its (type, value) JSON attributes.
func New(typeName string, data any) (Value, error) {
	pb, err := structpb.NewValue(data)
	if err != nil {
		return Value{}, fmt.Errorf("anyvalue: %w", err)
	}
	return Value{pb: pb, typeName: typeName}, nil
}

// NewBool, NewNumber, NewString are convenience constructors used throughout
// the standard instruction library and tests.
func NewBool(b bool) Value     { return Value{pb: structpb.NewBoolValue(b), typeName: "bool"} }
func NewNumber(f float64) Value {
	return Value{pb: structpb.NewNumberValue(f), typeName: "float64"}
}
func NewString(s string) Value { return Value{pb: structpb.NewStringValue(s), typeName: "string"} }

// NewList builds an array-kind Value.
func NewList(typeName string, items []Value) Value {
	lv := &structpb.ListValue{Values: make([]*structpb.Value, len(items))}
	for i, it := range items {
		if it.pb == nil {
			lv.Values[i] = structpb.NewNullValue()
			continue
		}
		lv.Values[i] = it.pb
	}
	return Value{pb: structpb.NewListValue(lv), typeName: typeName}
}

// NewStruct builds a struct-kind Value from named fields, preserving the
// typeName for the declared struct type.
func NewStruct(typeName string, fields map[string]Value) Value {
	sv := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, v := range fields {
		if v.pb == nil {
			sv.Fields[k] = structpb.NewNullValue()
			continue
		}
		sv.Fields[k] = v.pb
	}
	return Value{pb: structpb.NewStructValue(sv), typeName: typeName}
}

// AsInterface returns the plain Go representation (bool, float64, string,
// map[string]any, []any, or nil), matching structpb.Value.AsInterface.
func (v Value) AsInterface() any {
	if v.pb == nil {
		return nil
	}
	return v.pb.AsInterface()
}

// ToBool converts the value to a boolean Condition
// instruction ("Reads a boolean; SUCCESS iff the value converts to true").
// Numbers convert via != 0, strings are true iff exactly "true", "True",
// "1", "yes" or "Yes", bools pass through.
func (v Value) ToBool() (bool, error) {
	switch v.Kind() {
	case KindBool:
		return v.pb.GetBoolValue(), nil
	case KindNumber:
		return v.pb.GetNumberValue() != 0, nil
	case KindString:
		s := v.pb.GetStringValue()
		return s == "true" || s == "True" || s == "1" || s == "yes" || s == "Yes", nil
	default:
		return false, fmt.Errorf("anyvalue: cannot convert %s to bool", v.Kind())
	}
}

// ToFloat converts the value to a float64, used by timeout-style attributes
// (Wait, WaitForVariable, WaitForVariables).
func (v Value) ToFloat() (float64, error) {
	if v.Kind() != KindNumber {
		return 0, fmt.Errorf("anyvalue: cannot convert %s to float64", v.Kind())
	}
	return v.pb.GetNumberValue(), nil
}

// ToIndex converts the value to a single array index
// {to_index} operator, used by Choice when its selector resolves to a
// scalar.
func (v Value) ToIndex() (int, error) {
	if v.Kind() != KindNumber {
		return 0, fmt.Errorf("anyvalue: cannot convert %s to index", v.Kind())
	}
	f := v.pb.GetNumberValue()
	if f != float64(int(f)) {
		return 0, fmt.Errorf("anyvalue: index %v is not an integer", f)
	}
	return int(f), nil
}

// ToIndices converts the value to an array of indices, for Choice's "array
// of indices" selector form. A single scalar index is accepted as a
// one-element result for caller convenience.
func (v Value) ToIndices() ([]int, error) {
	if v.Kind() == KindNumber {
		idx, err := v.ToIndex()
		if err != nil {
			return nil, err
		}
		return []int{idx}, nil
	}
	if v.Kind() != KindList {
		return nil, fmt.Errorf("anyvalue: selector is neither a scalar index nor an integer array")
	}
	items := v.pb.GetListValue().GetValues()
	out := make([]int, len(items))
	for i, it := range items {
		iv := Value{pb: it}
		idx, err := iv.ToIndex()
		if err != nil {
			return nil, fmt.Errorf("anyvalue: selector array element %d: %w", i, err)
		}
		out[i] = idx
	}
	return out, nil
}

// GetField resolves a dot/bracket field path against this value, following
// the workspace path grammar ("." for struct fields, "[i]" for array
// elements). An empty path returns the value itself.
func (v Value) GetField(path string) (Value, error) {
	if path == "" {
		return v, nil
	}
	head, rest, isIndex := firstSegment(path)
	if isIndex {
		if v.Kind() != KindList {
			return Value{}, fmt.Errorf("anyvalue: field %q: not an array", path)
		}
		items := v.pb.GetListValue().GetValues()
		if head < 0 || head >= len(items) {
			return Value{}, fmt.Errorf("anyvalue: index %d out of range", head)
		}
		return Value{pb: items[head]}.GetField(rest)
	}
	if v.Kind() != KindStruct {
		return Value{}, fmt.Errorf("anyvalue: field %q: not a struct", path)
	}
	field, ok := v.pb.GetStructValue().GetFields()[segmentName(path)]
	if !ok {
		return Value{}, fmt.Errorf("anyvalue: field %q not found", segmentName(path))
	}
	return Value{pb: field}.GetField(rest)
}

// SetField returns a new Value with the field at path replaced by newVal,
// leaving the receiver untouched (structural sharing aside, siblings are
// unaffected). The path must resolve through existing struct/array
// containers; this mirrors the Local variable's behaviour of only assigning
// fields that already exist in the declared type.
func (v Value) SetField(path string, newVal Value) (Value, error) {
	if path == "" {
		return newVal, nil
	}
	head, rest, isIndex := firstSegment(path)
	if isIndex {
		if v.Kind() != KindList {
			return Value{}, fmt.Errorf("anyvalue: field %q: not an array", path)
		}
		items := v.pb.GetListValue().GetValues()
		if head < 0 || head >= len(items) {
			return Value{}, fmt.Errorf("anyvalue: index %d out of range", head)
		}
		updated, err := (Value{pb: items[head]}).SetField(rest, newVal)
		if err != nil {
			return Value{}, err
		}
		clone := cloneList(v.pb.GetListValue())
		clone.Values[head] = updated.pb
		return Value{pb: structpb.NewListValue(clone), typeName: v.typeName}, nil
	}
	if v.Kind() != KindStruct {
		return Value{}, fmt.Errorf("anyvalue: field %q: not a struct", path)
	}
	name := segmentName(path)
	existing, ok := v.pb.GetStructValue().GetFields()[name]
	if !ok {
		return Value{}, fmt.Errorf("anyvalue: field %q not found", name)
	}
	updated, err := (Value{pb: existing}).SetField(rest, newVal)
	if err != nil {
		return Value{}, err
	}
	clone := cloneStruct(v.pb.GetStructValue())
	clone.Fields[name] = updated.pb
	return Value{pb: structpb.NewStructValue(clone), typeName: v.typeName}, nil
}

// Assign replaces the value's content and type with other's, used by Local
// variables whose dynamicType attribute is true.
func (v Value) Assign(other Value) Value {
	return Value{pb: other.pb, typeName: other.typeName}
}

// Increment returns a new Value with a numeric value incremented by delta,
// supporting Increment/Decrement ("Succeeds iff the stored type
// supports arithmetic increment").
func (v Value) Increment(delta float64) (Value, error) {
	if v.Kind() != KindNumber {
		return Value{}, fmt.Errorf("anyvalue: %s does not support increment", v.Kind())
	}
	return Value{pb: structpb.NewNumberValue(v.pb.GetNumberValue() + delta), typeName: v.typeName}, nil
}

// Compare orders two values, returning -1/0/1, for LessThan/GreaterThan and
// relatives. Numbers compare numerically, strings
// lexicographically, bools false<true. Mixed kinds are a type error.
func (v Value) Compare(other Value) (int, error) {
	if v.Kind() != other.Kind() {
		return 0, fmt.Errorf("anyvalue: cannot compare %s with %s", v.Kind(), other.Kind())
	}
	switch v.Kind() {
	case KindNumber:
		a, b := v.pb.GetNumberValue(), other.pb.GetNumberValue()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case KindString:
		a, b := v.pb.GetStringValue(), other.pb.GetStringValue()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case KindBool:
		a, b := v.pb.GetBoolValue(), other.pb.GetBoolValue()
		if a == b {
			return 0, nil
		}
		if !a && b {
			return -1, nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("anyvalue: %s is not orderable", v.Kind())
	}
}

// Equal reports structural equality, used by Equals and workspace
// change-detection.
func (v Value) Equal(other Value) bool {
	if v.IsEmpty() != other.IsEmpty() {
		return false
	}
	if v.IsEmpty() {
		return true
	}
	if v.Kind() != other.Kind() {
		return false
	}
	if v.Kind() == KindStruct || v.Kind() == KindList {
		return fmt.Sprint(v.AsInterface()) == fmt.Sprint(other.AsInterface())
	}
	cmp, err := v.Compare(other)
	return err == nil && cmp == 0
}

func cloneStruct(s *structpb.Struct) *structpb.Struct {
	clone := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(s.GetFields()))}
	for k, val := range s.GetFields() {
		clone.Fields[k] = val
	}
	return clone
}

func cloneList(l *structpb.ListValue) *structpb.ListValue {
	clone := &structpb.ListValue{Values: make([]*structpb.Value, len(l.GetValues()))}
	copy(clone.Values, l.GetValues())
	return clone
}

// firstSegment splits path into its leading segment and the remainder.
// A leading "[i]" yields (i, rest, true); a leading "name" yields
// (0, rest-with-name-stripped... ) handled by segmentName for the name case.
func firstSegment(path string) (index int, rest string, isIndex bool) {
	if len(path) > 0 && path[0] == '[' {
		end := 1
		for end < len(path) && path[end] != ']' {
			end++
		}
		n := 0
		fmt.Sscanf(path[1:end], "%d", &n)
		rest := path[end+1:]
		rest = trimLeadingDot(rest)
		return n, rest, true
	}
	end := 0
	for end < len(path) && path[end] != '.' && path[end] != '[' {
		end++
	}
	rest := path[end:]
	rest = trimLeadingDot(rest)
	return 0, rest, false
}

func trimLeadingDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}

func segmentName(path string) string {
	end := 0
	for end < len(path) && path[end] != '.' && path[end] != '[' {
		end++
	}
	return path[:end]
}
