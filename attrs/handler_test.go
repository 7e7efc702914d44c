package attrs_test

import (
	"testing"

	"github.com/oac-tree/sequencer/attrs"
)

func TestAddSetAttribute(t *testing.T) {
	h := attrs.New()
	if !h.AddAttribute("name", "foo") {
		t.Fatalf("expected first add to succeed")
	}
	if h.AddAttribute("name", "bar") {
		t.Fatalf("expected second add on existing name to fail")
	}
	v, _ := h.Raw("name")
	if v != "foo" {
		t.Fatalf("expected value unchanged by failed add, got %q", v)
	}
	if !h.SetAttribute("name", "bar") {
		t.Fatalf("expected set on existing name to succeed")
	}
	if h.SetAttribute("missing", "x") {
		t.Fatalf("expected set on absent name to fail")
	}
}

func TestValidateMandatory(t *testing.T) {
	h := attrs.New()
	h.Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	missing := h.ValidateMandatory()
	if len(missing) != 1 || missing[0] != "varName" {
		t.Fatalf("expected varName missing, got %v", missing)
	}
	h.AddAttribute("varName", "@foo")
	if missing := h.ValidateMandatory(); len(missing) != 0 {
		t.Fatalf("expected no missing attributes, got %v", missing)
	}
}

func TestIsVariableReference(t *testing.T) {
	path, isRef := attrs.IsVariableReference(attrs.VariableName, "@foo")
	if !isRef || path != "foo" {
		t.Fatalf("got path=%q isRef=%v", path, isRef)
	}
	path, isRef = attrs.IsVariableReference(attrs.Literal, "@foo")
	if isRef {
		t.Fatalf("Literal category must never resolve as a reference")
	}
	_ = path
	path, isRef = attrs.IsVariableReference(attrs.Both, "@foo")
	if !isRef || path != "foo" {
		t.Fatalf("Both with sigil should resolve as reference, got path=%q isRef=%v", path, isRef)
	}
	path, isRef = attrs.IsVariableReference(attrs.Both, "42")
	if isRef || path != "42" {
		t.Fatalf("Both without sigil should be literal, got path=%q isRef=%v", path, isRef)
	}
}

func TestPlaceholderSubstitution(t *testing.T) {
	src := attrs.New()
	src.AddAttribute("count", "5")

	dst := attrs.New()
	dst.AddAttribute("maxCount", "$count")
	dst.AddAttribute("fixed", "10")

	dst.InitialisePlaceholderAttributes(src)

	v, _ := dst.Raw("maxCount")
	if v != "5" {
		t.Fatalf("expected placeholder substituted to 5, got %q", v)
	}
	v, _ = dst.Raw("fixed")
	if v != "10" {
		t.Fatalf("expected non-placeholder attribute untouched, got %q", v)
	}
}

func TestPlaceholderUnresolvedLeftAlone(t *testing.T) {
	src := attrs.New()
	dst := attrs.New()
	dst.AddAttribute("maxCount", "$missing")
	dst.InitialisePlaceholderAttributes(src)
	v, _ := dst.Raw("maxCount")
	if v != "$missing" {
		t.Fatalf("expected unresolved placeholder left untouched, got %q", v)
	}
}

func TestValidateAttributesConstraints(t *testing.T) {
	h := attrs.New()
	h.AddAttribute("a", "")
	ok, failed := h.ValidateAttributes([]attrs.Constraint{
		attrs.Exists("a"),
		attrs.NonEmpty("a"),
		attrs.Exists("b"),
	})
	if ok {
		t.Fatalf("expected validation to fail")
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failures, got %v", failed)
	}
}

func TestConstraintCombinators(t *testing.T) {
	h := attrs.New()
	h.AddAttribute("a", "1")

	ok, _ := h.ValidateAttributes([]attrs.Constraint{attrs.Or(attrs.Exists("a"), attrs.Exists("b"))})
	if !ok {
		t.Fatalf("Or should pass when one side passes")
	}

	ok, _ = h.ValidateAttributes([]attrs.Constraint{attrs.And(attrs.Exists("a"), attrs.Exists("b"))})
	if ok {
		t.Fatalf("And should fail when one side fails")
	}

	ok, _ = h.ValidateAttributes([]attrs.Constraint{attrs.Not(attrs.Exists("b"))})
	if !ok {
		t.Fatalf("Not(Exists(missing)) should pass")
	}
}

func TestGetValueAs(t *testing.T) {
	h := attrs.New()
	h.Define("count", attrs.Definition{Type: "uint32"})
	h.AddAttribute("count", "42")

	v, ok, err := h.GetValueAs("count")
	if err != nil || !ok {
		t.Fatalf("GetValueAs: ok=%v err=%v", ok, err)
	}
	idx, _ := v.ToIndex()
	if idx != 42 {
		t.Fatalf("got %v", v.AsInterface())
	}

	_, ok, _ = h.GetValueAs("absent")
	if ok {
		t.Fatalf("expected absent attribute to report ok=false")
	}
}

func TestParseLiteralBool(t *testing.T) {
	v, err := attrs.ParseLiteral("bool", "true")
	if err != nil {
		t.Fatalf("ParseLiteral: %v", err)
	}
	b, err := v.ToBool()
	if err != nil || !b {
		t.Fatalf("got %v, %v", b, err)
	}
}
