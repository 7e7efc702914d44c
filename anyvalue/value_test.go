package anyvalue_test

import (
	"testing"

	"github.com/oac-tree/sequencer/anyvalue"
)

func TestEmpty(t *testing.T) {
	v := anyvalue.Empty()
	if !v.IsEmpty() {
		t.Fatalf("expected empty value")
	}
	if v.Kind() != anyvalue.KindNull {
		t.Fatalf("expected KindNull, got %v", v.Kind())
	}
}

func TestNewAndToBool(t *testing.T) {
	cases := []struct {
		name string
		v    anyvalue.Value
		want bool
	}{
		{"bool true", anyvalue.NewBool(true), true},
		{"bool false", anyvalue.NewBool(false), false},
		{"number nonzero", anyvalue.NewNumber(3), true},
		{"number zero", anyvalue.NewNumber(0), false},
		{"string true", anyvalue.NewString("true"), true},
		{"string other", anyvalue.NewString("nope"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.v.ToBool()
			if err != nil {
				t.Fatalf("ToBool: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestToIndexAndIndices(t *testing.T) {
	idx, err := anyvalue.NewNumber(2).ToIndex()
	if err != nil || idx != 2 {
		t.Fatalf("ToIndex: got %d, %v", idx, err)
	}
	if _, err := anyvalue.NewNumber(2.5).ToIndex(); err == nil {
		t.Fatalf("expected error for non-integer index")
	}

	arr := anyvalue.NewList("int", []anyvalue.Value{anyvalue.NewNumber(0), anyvalue.NewNumber(2)})
	indices, err := arr.ToIndices()
	if err != nil {
		t.Fatalf("ToIndices: %v", err)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Fatalf("unexpected indices: %v", indices)
	}
}

func TestGetSetFieldStruct(t *testing.T) {
	s := anyvalue.NewStruct("point", map[string]anyvalue.Value{
		"x": anyvalue.NewNumber(1),
		"y": anyvalue.NewNumber(2),
	})
	got, err := s.GetField("x")
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if f, _ := got.ToIndex(); f != 1 {
		t.Fatalf("got %v", got.AsInterface())
	}

	updated, err := s.SetField("x", anyvalue.NewNumber(9))
	if err != nil {
		t.Fatalf("SetField: %v", err)
	}
	got, _ = updated.GetField("x")
	if f, _ := got.ToIndex(); f != 9 {
		t.Fatalf("expected updated x==9, got %v", got.AsInterface())
	}
	// original untouched
	got, _ = s.GetField("x")
	if f, _ := got.ToIndex(); f != 1 {
		t.Fatalf("original mutated: %v", got.AsInterface())
	}
}

func TestGetSetFieldArray(t *testing.T) {
	arr := anyvalue.NewList("int", []anyvalue.Value{anyvalue.NewNumber(10), anyvalue.NewNumber(20)})
	got, err := arr.GetField("[1]")
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if idx, _ := got.ToIndex(); idx != 20 {
		t.Fatalf("got %v", got.AsInterface())
	}
	updated, err := arr.SetField("[0]", anyvalue.NewNumber(99))
	if err != nil {
		t.Fatalf("SetField: %v", err)
	}
	got, _ = updated.GetField("[0]")
	if idx, _ := got.ToIndex(); idx != 99 {
		t.Fatalf("expected 99, got %v", got.AsInterface())
	}
}

func TestNestedFieldPath(t *testing.T) {
	inner := anyvalue.NewStruct("inner", map[string]anyvalue.Value{"z": anyvalue.NewNumber(5)})
	outer := anyvalue.NewStruct("outer", map[string]anyvalue.Value{"inner": inner})
	got, err := outer.GetField("inner.z")
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if idx, _ := got.ToIndex(); idx != 5 {
		t.Fatalf("got %v", got.AsInterface())
	}
}

func TestCompare(t *testing.T) {
	a, b := anyvalue.NewNumber(1), anyvalue.NewNumber(2)
	cmp, err := a.Compare(b)
	if err != nil || cmp != -1 {
		t.Fatalf("got %d, %v", cmp, err)
	}
	cmp, err = b.Compare(a)
	if err != nil || cmp != 1 {
		t.Fatalf("got %d, %v", cmp, err)
	}
	if _, err := a.Compare(anyvalue.NewString("x")); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestIncrement(t *testing.T) {
	v := anyvalue.NewNumber(4)
	next, err := v.Increment(1)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if idx, _ := next.ToIndex(); idx != 5 {
		t.Fatalf("got %v", next.AsInterface())
	}
	if _, err := anyvalue.NewString("x").Increment(1); err == nil {
		t.Fatalf("expected error incrementing a string")
	}
}

func TestAssignChangesType(t *testing.T) {
	v, _ := anyvalue.New("uint32", float64(1))
	v = v.Assign(anyvalue.NewString("now a string"))
	if v.Kind() != anyvalue.KindString {
		t.Fatalf("expected string kind after assign, got %v", v.Kind())
	}
	if v.TypeName() != "string" {
		t.Fatalf("expected type name to follow assign, got %q", v.TypeName())
	}
}

func TestEqual(t *testing.T) {
	if !anyvalue.NewNumber(1).Equal(anyvalue.NewNumber(1)) {
		t.Fatalf("expected equal numbers to be equal")
	}
	if anyvalue.NewNumber(1).Equal(anyvalue.NewNumber(2)) {
		t.Fatalf("expected different numbers to differ")
	}
	if !anyvalue.Empty().Equal(anyvalue.Empty()) {
		t.Fatalf("expected two empty values to be equal")
	}
}
