package instructions

import (
	"strings"
	"time"

	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// WaitForVariable blocks until varName becomes available and, if equalsVar
// is set, equal to it, up to timeout seconds — built on the workspace's
// condition-variable wait primitive rather than polling.
type WaitForVariable struct{ *instruction.Base }

func NewWaitForVariable() *WaitForVariable {
	w := &WaitForVariable{}
	w.Base = instruction.NewBase(w, "WaitForVariable", instruction.Action, instruction.Hooks{Execute: w.execute})
	w.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	w.Attributes().Define("timeout", attrs.Definition{Mandatory: true, Type: "float64", Category: attrs.Both})
	w.Attributes().Define("equalsVar", attrs.Definition{Category: attrs.VariableName})
	w.SetConstraints(attrs.Exists("varName"), attrs.Exists("timeout"))
	return w
}

func (w *WaitForVariable) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := w.AttributePath("varName")
	timeoutSeconds, ok := w.GetAttributeValueAsFloat("timeout", ws, ui)
	if !ok {
		return instruction.Failure
	}
	timeoutDur := time.Duration(timeoutSeconds * float64(time.Second))

	equalsPath, hasEquals := w.AttributePath("equalsVar")

	predicate := func() bool {
		v, err := ws.GetValue(path)
		if err != nil {
			return false
		}
		if !hasEquals {
			return true
		}
		other, err := ws.GetValue(equalsPath)
		if err != nil {
			return false
		}
		return v.Equal(other)
	}

	if !ws.WaitUntil(predicate, timeoutDur, w.HaltSignal()) {
		return instruction.Failure
	}
	return instruction.Success
}

// WaitForVariables blocks until every variable of varType is available, up
// to timeout seconds, logging the names still unavailable on timeout.
type WaitForVariables struct{ *instruction.Base }

func NewWaitForVariables() *WaitForVariables {
	w := &WaitForVariables{}
	w.Base = instruction.NewBase(w, "WaitForVariables", instruction.Action, instruction.Hooks{Execute: w.execute})
	w.Attributes().Define("varType", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	w.Attributes().Define("timeout", attrs.Definition{Mandatory: true, Type: "float64", Category: attrs.Both})
	w.SetConstraints(attrs.Exists("varType"), attrs.Exists("timeout"))
	return w
}

func (w *WaitForVariables) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	varType, _ := w.Attributes().Raw("varType")
	timeoutSeconds, ok := w.GetAttributeValueAsFloat("timeout", ws, ui)
	if !ok {
		return instruction.Failure
	}
	timeoutDur := time.Duration(timeoutSeconds * float64(time.Second))
	names := ws.NamesByType(varType)

	unavailable := func() []string {
		var out []string
		for _, n := range names {
			v, ok := ws.Variable(n)
			if !ok || !v.IsAvailable() {
				out = append(out, n)
			}
		}
		return out
	}

	predicate := func() bool { return len(unavailable()) == 0 }
	if ws.WaitUntil(predicate, timeoutDur, w.HaltSignal()) {
		return instruction.Success
	}
	if ui != nil {
		ui.Log(instruction.SeverityWarning, "WaitForVariables: still unavailable: "+strings.Join(unavailable(), ", "))
	}
	return instruction.Failure
}
