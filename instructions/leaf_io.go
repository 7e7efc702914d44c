package instructions

import (
	"fmt"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

// Input requests a user-supplied value for outputVar through the host UI,
//. The current value of outputVar (if any) is offered as a
// type template; failure to respond (ok=false) fails the instruction.
type Input struct{ *instruction.Base }

func NewInput() *Input {
	i := &Input{}
	i.Base = instruction.NewBase(i, "Input", instruction.Action, instruction.Hooks{Execute: i.execute})
	i.Attributes().Define("outputVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	i.Attributes().Define("description", attrs.Definition{Category: attrs.Literal})
	i.SetConstraints(attrs.Exists("outputVar"))
	return i
}

func (i *Input) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := i.AttributePath("outputVar")
	description, _ := i.Attributes().Raw("description")
	template, err := ws.GetValue(path)
	if err != nil {
		template = anyvalue.Empty()
	}
	if ui == nil {
		return instruction.Failure
	}
	value, ok := ui.RequestUserValue(template, description)
	if !ok {
		return instruction.Failure
	}
	if err := ws.SetValue(path, value); err != nil {
		logFailure(ui, "Input", err)
		return instruction.Failure
	}
	return instruction.Success
}

// Output surfaces fromVar's current value to the host UI and always
// succeeds once the value resolves.
type Output struct{ *instruction.Base }

func NewOutput() *Output {
	o := &Output{}
	o.Base = instruction.NewBase(o, "Output", instruction.Action, instruction.Hooks{Execute: o.execute})
	o.Attributes().Define("fromVar", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	o.Attributes().Define("description", attrs.Definition{Category: attrs.Literal})
	o.SetConstraints(attrs.Exists("fromVar"))
	return o
}

func (o *Output) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	v, ok := o.GetAttributeValue("fromVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	description, _ := o.Attributes().Raw("description")
	if ui != nil {
		ui.PutValue(v, description)
	}
	return instruction.Success
}

// Message surfaces a fixed text string to the host UI and always succeeds.
type Message struct{ *instruction.Base }

func NewMessage() *Message {
	m := &Message{}
	m.Base = instruction.NewBase(m, "Message", instruction.Action, instruction.Hooks{Execute: m.execute})
	m.Attributes().Define("text", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	m.SetConstraints(attrs.Exists("text"))
	return m
}

func (m *Message) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	text, _ := m.Attributes().Raw("text")
	if ui != nil {
		ui.Message(text)
	}
	return instruction.Success
}

// Log emits a severity-tagged line, sourced from either a literal message
// attribute or an inputVar read at tick time; at least one must be set,
// and message is used when both are.
type Log struct{ *instruction.Base }

func NewLog() *Log {
	l := &Log{}
	l.Base = instruction.NewBase(l, "Log", instruction.Action, instruction.Hooks{Execute: l.execute})
	l.Attributes().Define("message", attrs.Definition{Category: attrs.Literal})
	l.Attributes().Define("inputVar", attrs.Definition{Category: attrs.VariableName})
	l.Attributes().Define("severity", attrs.Definition{Category: attrs.Literal})
	l.SetConstraints(attrs.Or(attrs.Exists("message"), attrs.Exists("inputVar")))
	return l
}

func (l *Log) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	severityRaw, _ := l.Attributes().Raw("severity")
	severity := instruction.ParseSeverity(severityRaw)
	if ui == nil {
		return instruction.Failure
	}
	if msg, ok := l.Attributes().Raw("message"); ok {
		ui.Log(severity, msg)
		return instruction.Success
	}
	v, ok := l.GetAttributeValue("inputVar", ws, ui)
	if !ok || v.IsEmpty() {
		ui.Log(instruction.SeverityError, "Log: inputVar did not resolve to a value")
		return instruction.Failure
	}
	ui.Log(severity, fmt.Sprint(v.AsInterface()))
	return instruction.Success
}
