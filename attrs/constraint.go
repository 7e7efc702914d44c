package attrs

import "fmt"

// Constraint is a predicate over a Handler's attribute set, evaluated during
// instruction/variable setup. Evaluate returns nil when the
// constraint is satisfied, or an error describing the failure.
type Constraint interface {
	Evaluate(h *Handler) error
}

type existsConstraint struct{ name string }

// Exists requires the named attribute to be present.
func Exists(name string) Constraint { return existsConstraint{name} }

func (c existsConstraint) Evaluate(h *Handler) error {
	if !h.Has(c.name) {
		return fmt.Errorf("attribute %q is required", c.name)
	}
	return nil
}

type nonEmptyConstraint struct{ name string }

// NonEmpty requires the named attribute to be present and non-empty.
func NonEmpty(name string) Constraint { return nonEmptyConstraint{name} }

func (c nonEmptyConstraint) Evaluate(h *Handler) error {
	v, ok := h.Raw(c.name)
	if !ok || v == "" {
		return fmt.Errorf("attribute %q must be non-empty", c.name)
	}
	return nil
}

type andConstraint struct{ constraints []Constraint }

// And requires every sub-constraint to pass.
func And(constraints ...Constraint) Constraint { return andConstraint{constraints} }

func (c andConstraint) Evaluate(h *Handler) error {
	for _, sub := range c.constraints {
		if err := sub.Evaluate(h); err != nil {
			return err
		}
	}
	return nil
}

type orConstraint struct{ constraints []Constraint }

// Or requires at least one sub-constraint to pass.
func Or(constraints ...Constraint) Constraint { return orConstraint{constraints} }

func (c orConstraint) Evaluate(h *Handler) error {
	if len(c.constraints) == 0 {
		return nil
	}
	var firstErr error
	for _, sub := range c.constraints {
		err := sub.Evaluate(h)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("no alternative satisfied (first: %w)", firstErr)
}

type notConstraint struct{ inner Constraint }

// Not requires the inner constraint to fail.
func Not(inner Constraint) Constraint { return notConstraint{inner} }

func (c notConstraint) Evaluate(h *Handler) error {
	if err := c.inner.Evaluate(h); err == nil {
		return fmt.Errorf("negated constraint unexpectedly satisfied")
	}
	return nil
}
