// Package registry implements GlobalInstructionRegistry and
// GlobalVariableRegistry from type-name-keyed, zero-argument
// constructor maps, lazily initialized once with every built-in type at
// first access, generalized from agent.Registry's configs-map-plus-
// lazy-instantiation shape (here there is no config to store — the
// "config" of an instruction or variable is its attribute set, applied
// after construction).
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/instructions"
	"github.com/oac-tree/sequencer/variable"
)

// InstructionRegistry maps instruction type names to zero-argument
// constructors. A plug-in, treated as an opaque side effect that may
// register new instruction and variable constructors, calls Register to
// add its own types.
type InstructionRegistry struct {
	mu    sync.RWMutex
	ctors map[string]func() instruction.Instruction
}

// NewInstructionRegistry constructs an empty registry, for tests or
// private plug-in sandboxes that should not see the global built-ins.
func NewInstructionRegistry() *InstructionRegistry {
	return &InstructionRegistry{ctors: make(map[string]func() instruction.Instruction)}
}

// Register adds typeName's constructor. Re-registering an existing name is
// an InvalidOperationException ("duplicate registration").
func (r *InstructionRegistry) Register(typeName string, ctor func() instruction.Instruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[typeName]; exists {
		return &instruction.SetupError{Kind: instruction.KindInvalidOperation, Subject: typeName,
			Failures: []string{"instruction type already registered"}}
	}
	r.ctors[typeName] = ctor
	return nil
}

// New constructs a fresh, childless, attribute-empty instance of typeName.
func (r *InstructionRegistry) New(typeName string) (instruction.Instruction, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &instruction.SetupError{Kind: instruction.KindInstructionSetup, Subject: typeName,
			Failures: []string{"no instruction type registered under this name"}}
	}
	return ctor(), nil
}

// TypeNames returns every registered type name, sorted.
func (r *InstructionRegistry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// VariableRegistry maps variable back-end type names to zero-argument
// constructors, mirroring InstructionRegistry.
type VariableRegistry struct {
	mu    sync.RWMutex
	ctors map[string]func() variable.Variable
}

// NewVariableRegistry constructs an empty registry.
func NewVariableRegistry() *VariableRegistry {
	return &VariableRegistry{ctors: make(map[string]func() variable.Variable)}
}

func (r *VariableRegistry) Register(typeName string, ctor func() variable.Variable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[typeName]; exists {
		return &instruction.SetupError{Kind: instruction.KindInvalidOperation, Subject: typeName,
			Failures: []string{"variable type already registered"}}
	}
	r.ctors[typeName] = ctor
	return nil
}

func (r *VariableRegistry) New(typeName string) (variable.Variable, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &instruction.SetupError{Kind: instruction.KindVariableSetup, Subject: typeName,
			Failures: []string{"no variable type registered under this name"}}
	}
	return ctor(), nil
}

func (r *VariableRegistry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	globalInstructionsOnce sync.Once
	globalInstructions     *InstructionRegistry

	globalVariablesOnce sync.Once
	globalVariables     *VariableRegistry
)

// Instructions returns the process-wide instruction registry, populated
// with every standard-library type on first access (thread-safe one-shot
//).
func Instructions() *InstructionRegistry {
	globalInstructionsOnce.Do(func() {
		globalInstructions = NewInstructionRegistry()
		registerBuiltinInstructions(globalInstructions)
	})
	return globalInstructions
}

// Variables returns the process-wide variable registry, populated with
// Local and File on first access.
func Variables() *VariableRegistry {
	globalVariablesOnce.Do(func() {
		globalVariables = NewVariableRegistry()
		registerBuiltinVariables(globalVariables)
	})
	return globalVariables
}

func registerBuiltinVariables(r *VariableRegistry) {
	must(r.Register("Local", func() variable.Variable { return variable.NewLocal() }))
	must(r.Register("File", func() variable.Variable { return variable.NewFile() }))
}

func registerBuiltinInstructions(r *InstructionRegistry) {
	register := func(name string, ctor func() instruction.Instruction) { must(r.Register(name, ctor)) }

	register("Wait", func() instruction.Instruction { return instructions.NewWait() })
	register("Condition", func() instruction.Instruction { return instructions.NewCondition() })
	register("Copy", func() instruction.Instruction { return instructions.NewCopy() })
	register("Equals", func() instruction.Instruction { return instructions.NewEquals() })
	register("LessThan", func() instruction.Instruction { return instructions.NewLessThan() })
	register("LessThanOrEqual", func() instruction.Instruction { return instructions.NewLessThanOrEqual() })
	register("GreaterThan", func() instruction.Instruction { return instructions.NewGreaterThan() })
	register("GreaterThanOrEqual", func() instruction.Instruction { return instructions.NewGreaterThanOrEqual() })
	register("Increment", func() instruction.Instruction { return instructions.NewIncrement() })
	register("Decrement", func() instruction.Instruction { return instructions.NewDecrement() })
	register("ResetVariable", func() instruction.Instruction { return instructions.NewResetVariable() })
	register("VarExists", func() instruction.Instruction { return instructions.NewVarExists() })
	register("Succeed", func() instruction.Instruction { return instructions.NewSucceed() })
	register("Fail", func() instruction.Instruction { return instructions.NewFail() })
	register("Counter", func() instruction.Instruction { return instructions.NewCounter() })
	register("Input", func() instruction.Instruction { return instructions.NewInput() })
	register("Output", func() instruction.Instruction { return instructions.NewOutput() })
	register("Message", func() instruction.Instruction { return instructions.NewMessage() })
	register("Log", func() instruction.Instruction { return instructions.NewLog() })
	register("CopyFromProcedure", func() instruction.Instruction { return instructions.NewCopyFromProcedure() })
	register("CopyToProcedure", func() instruction.Instruction { return instructions.NewCopyToProcedure() })
	register("IncludeProcedure", func() instruction.Instruction { return instructions.NewIncludeProcedure() })
	register("WaitForVariable", func() instruction.Instruction { return instructions.NewWaitForVariable() })
	register("WaitForVariables", func() instruction.Instruction { return instructions.NewWaitForVariables() })
	register("AddElement", func() instruction.Instruction { return instructions.NewAddElement() })
	register("AddMember", func() instruction.Instruction { return instructions.NewAddMember() })

	register("Inverter", func() instruction.Instruction { return instructions.NewInverter() })
	register("ForceSuccess", func() instruction.Instruction { return instructions.NewForceSuccess() })
	register("Repeat", func() instruction.Instruction { return instructions.NewRepeat() })
	register("For", func() instruction.Instruction { return instructions.NewFor() })
	register("Listen", func() instruction.Instruction { return instructions.NewListen() })
	register("Async", func() instruction.Instruction { return instructions.NewAsync() })
	register("Include", func() instruction.Instruction { return instructions.NewInclude() })

	register("Sequence", func() instruction.Instruction { return instructions.NewSequence() })
	register("Fallback", func() instruction.Instruction { return instructions.NewFallback() })
	register("ReactiveSequence", func() instruction.Instruction { return instructions.NewReactiveSequence() })
	register("ReactiveFallback", func() instruction.Instruction { return instructions.NewReactiveFallback() })
	register("ParallelSequence", func() instruction.Instruction { return instructions.NewParallelSequence() })
	register("Choice", func() instruction.Instruction { return instructions.NewChoice() })
	register("UserChoice", func() instruction.Instruction { return instructions.NewUserChoice() })
	register("UserConfirmation", func() instruction.Instruction { return instructions.NewUserConfirmation() })
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("registry: built-in registration failed: %v", err))
	}
}
