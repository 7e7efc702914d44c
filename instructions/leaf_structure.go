package instructions

import (
	"errors"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
	"github.com/oac-tree/sequencer/instruction"
	"github.com/oac-tree/sequencer/workspace"
)

var (
	errNotArray  = errors.New("varName is not an array")
	errNotStruct = errors.New("varName is not a struct")
)

// AddElement appends elementVar's resolved value onto the array stored in
// varName, creating the array if varName is currently empty.
type AddElement struct{ *instruction.Base }

func NewAddElement() *AddElement {
	a := &AddElement{}
	a.Base = instruction.NewBase(a, "AddElement", instruction.Action, instruction.Hooks{Execute: a.execute})
	a.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	a.Attributes().Define("elementVar", attrs.Definition{Mandatory: true, Category: attrs.Both})
	a.SetConstraints(attrs.Exists("varName"), attrs.Exists("elementVar"))
	return a
}

func (a *AddElement) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := a.AttributePath("varName")
	current, err := ws.GetValue(path)
	typeName := ""
	var items []anyvalue.Value
	if err == nil {
		typeName = current.TypeName()
		if arr, ok := current.AsInterface().([]any); ok {
			for _, it := range arr {
				v, convErr := anyvalue.New("", it)
				if convErr != nil {
					logFailure(ui, "AddElement", convErr)
					return instruction.Failure
				}
				items = append(items, v)
			}
		} else if !current.IsEmpty() {
			logFailure(ui, "AddElement", errNotArray)
			return instruction.Failure
		}
	}

	element, ok := a.GetAttributeValue("elementVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	items = append(items, element)

	if err := ws.SetValue(path, anyvalue.NewList(typeName, items)); err != nil {
		logFailure(ui, "AddElement", err)
		return instruction.Failure
	}
	return instruction.Success
}

// AddMember sets memberName on the struct stored in varName to memberVar's
// resolved value, creating the struct if varName is currently empty.
type AddMember struct{ *instruction.Base }

func NewAddMember() *AddMember {
	m := &AddMember{}
	m.Base = instruction.NewBase(m, "AddMember", instruction.Action, instruction.Hooks{Execute: m.execute})
	m.Attributes().Define("varName", attrs.Definition{Mandatory: true, Category: attrs.VariableName})
	m.Attributes().Define("memberName", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	m.Attributes().Define("memberVar", attrs.Definition{Mandatory: true, Category: attrs.Both})
	m.SetConstraints(attrs.Exists("varName"), attrs.Exists("memberName"), attrs.Exists("memberVar"))
	return m
}

func (m *AddMember) execute(ui instruction.UI, ws *workspace.Workspace) instruction.Status {
	path, _ := m.AttributePath("varName")
	current, err := ws.GetValue(path)
	typeName := ""
	fields := map[string]anyvalue.Value{}
	if err == nil {
		typeName = current.TypeName()
		if raw, ok := current.AsInterface().(map[string]any); ok {
			for k, v := range raw {
				fv, convErr := anyvalue.New("", v)
				if convErr != nil {
					logFailure(ui, "AddMember", convErr)
					return instruction.Failure
				}
				fields[k] = fv
			}
		} else if !current.IsEmpty() {
			logFailure(ui, "AddMember", errNotStruct)
			return instruction.Failure
		}
	}

	memberName, _ := m.Attributes().Raw("memberName")
	value, ok := m.GetAttributeValue("memberVar", ws, ui)
	if !ok {
		return instruction.Failure
	}
	fields[memberName] = value

	if err := ws.SetValue(path, anyvalue.NewStruct(typeName, fields)); err != nil {
		logFailure(ui, "AddMember", err)
		return instruction.Failure
	}
	return instruction.Success
}
