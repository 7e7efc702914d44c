package workspace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/variable"
	"github.com/oac-tree/sequencer/workspace"
)

func newLocal(t *testing.T, typeName, value string) *variable.Local {
	t.Helper()
	v := variable.NewLocal()
	v.Attributes().AddAttribute("type", typeName)
	v.Attributes().AddAttribute("value", value)
	return v
}

func TestWorkspaceSetupAndGetValue(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.AddVariable("one", newLocal(t, "uint32", "1")))
	require.NoError(t, ws.Setup())

	got, err := ws.GetValue("one")
	require.NoError(t, err)
	idx, err := got.ToIndex()
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestAddVariableAfterSetupFails(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.AddVariable("one", newLocal(t, "uint32", "1")))
	require.NoError(t, ws.Setup())
	require.Error(t, ws.AddVariable("two", newLocal(t, "uint32", "2")))

	ws.Teardown()
	require.NoError(t, ws.AddVariable("two", newLocal(t, "uint32", "2")))
}

func TestCallbackOrderingGenericThenNamed(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.AddVariable("var1", newLocal(t, "uint32", "0")))
	require.NoError(t, ws.Setup())

	var calls []string
	listener := new(int)
	ws.RegisterGenericCallback(listener, func(name string, v anyvalue.Value, connected bool) {
		calls = append(calls, "generic:"+name)
	})
	ws.RegisterCallback(listener, "var1", func(name string, v anyvalue.Value, connected bool) {
		calls = append(calls, "named:"+name)
	})

	require.NoError(t, ws.SetValue("var1", anyvalue.NewNumber(5)))
	require.Equal(t, []string{"generic:var1", "named:var1"}, calls)
}

func TestCallbackGuardStopsDelivery(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.AddVariable("var1", newLocal(t, "uint32", "0")))
	require.NoError(t, ws.Setup())

	listener := new(int)
	calls := 0
	ws.RegisterGenericCallback(listener, func(name string, v anyvalue.Value, connected bool) {
		calls++
	})
	guard := ws.CallbackGuard(listener)

	require.NoError(t, ws.SetValue("var1", anyvalue.NewNumber(1)))
	require.Equal(t, 1, calls)

	guard.Release()
	require.NoError(t, ws.SetValue("var1", anyvalue.NewNumber(2)))
	require.Equal(t, 1, calls, "expected no further calls after release")
}

func TestSplitFieldName(t *testing.T) {
	cases := []struct {
		path, name, sub string
	}{
		{"one", "one", ""},
		{"one.x", "one", "x"},
		{"one[0]", "one", "[0]"},
		{"one.inner.z", "one", "inner.z"},
	}
	for _, tc := range cases {
		name, sub := workspace.SplitFieldName(tc.path)
		require.Equal(t, tc.name, name)
		require.Equal(t, tc.sub, sub)
	}
}

func TestWaitForVariableBecomesAvailable(t *testing.T) {
	ws := workspace.New()
	v := variable.NewLocal()
	require.NoError(t, ws.AddVariable("one", v))
	require.NoError(t, ws.Setup())

	done := make(chan bool, 1)
	go func() {
		done <- ws.WaitForVariable("one", time.Second, true, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, ws.SetValue("one", anyvalue.NewNumber(1)))

	select {
	case ok := <-done:
		require.True(t, ok, "expected WaitForVariable to observe availability")
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForVariable did not return in time")
	}
}

func TestWaitForVariableTimesOut(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.AddVariable("one", variable.NewLocal()))
	require.NoError(t, ws.Setup())
	require.False(t, ws.WaitForVariable("one", 50*time.Millisecond, true, nil))
}

func TestWaitForVariableCancel(t *testing.T) {
	ws := workspace.New()
	require.NoError(t, ws.AddVariable("one", variable.NewLocal()))
	require.NoError(t, ws.Setup())

	cancel := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		done <- ws.WaitForVariable("one", 0, true, cancel)
	}()
	time.Sleep(20 * time.Millisecond)
	close(cancel)

	select {
	case ok := <-done:
		require.False(t, ok, "expected cancelled wait to return false")
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForVariable did not return after cancel")
	}
}
