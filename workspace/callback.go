package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/observability"
)

// registration pairs an opaque listener identity with the callback it
// registered, so CallbackGuard can erase every registration for a listener
// in one pass.
type registration struct {
	listener any
	cb       Callback
}

// callbackRegistry holds the generic and per-name listener lists. Its own
// mutex is never held while invoking a callback
// "notification lock is held only to iterate the callback list."
type callbackRegistry struct {
	mu      sync.Mutex
	generic []registration
	named   map[string][]registration
}

func (r *callbackRegistry) init() {
	r.named = make(map[string][]registration)
}

func (r *callbackRegistry) registerGeneric(listener any, cb Callback) {
	r.mu.Lock()
	r.generic = append(r.generic, registration{listener, cb})
	r.mu.Unlock()
}

func (r *callbackRegistry) registerNamed(listener any, name string, cb Callback) {
	r.mu.Lock()
	r.named[name] = append(r.named[name], registration{listener, cb})
	r.mu.Unlock()
}

func (r *callbackRegistry) unregister(listener any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generic = filterOut(r.generic, listener)
	for name, regs := range r.named {
		r.named[name] = filterOut(regs, listener)
	}
}

// snapshot returns a copy of the generic and named-for-name registration
// lists, taken under the registry lock, for lock-free dispatch.
func (r *callbackRegistry) snapshot(name string) (generic, named []registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	generic = append([]registration(nil), r.generic...)
	named = append([]registration(nil), r.named[name]...)
	return generic, named
}

func filterOut(regs []registration, listener any) []registration {
	if len(regs) == 0 {
		return regs
	}
	out := make([]registration, 0, len(regs))
	for _, r := range regs {
		if r.listener != listener {
			out = append(out, r)
		}
	}
	return out
}

// RegisterGenericCallback registers cb to fire on every variable update,
// tagged with listener for later bulk deregistration via CallbackGuard.
func (w *Workspace) RegisterGenericCallback(listener any, cb Callback) {
	w.callbacks.registerGeneric(listener, cb)
}

// RegisterCallback registers cb to fire on updates to the named variable
// only.
func (w *Workspace) RegisterCallback(listener any, name string, cb Callback) {
	w.callbacks.registerNamed(listener, name, cb)
}

// CallbackGuard scopes a listener's registrations to the guard's lifetime.
// Release deregisters every callback registered under the listener
// identity; it is safe to call more than once and is a no-op if the
// listener never registered anything.
type CallbackGuard struct {
	ws       *Workspace
	listener any
	once     sync.Once
}

// CallbackGuard returns a guard for listener. Release erases every
// registration (generic and named) made under that identity up to the
// moment it runs. A guard releases only once, so registrations made after
// its Release stay live until a new guard for the same listener is
// released.
func (w *Workspace) CallbackGuard(listener any) *CallbackGuard {
	return &CallbackGuard{ws: w, listener: listener}
}

// Release unregisters every callback under this guard's listener identity.
func (g *CallbackGuard) Release() {
	g.once.Do(func() {
		g.ws.callbacks.unregister(g.listener)
	})
}

// dispatch fans a variable update out to generic listeners (insertion
// order) then named listeners of name (insertion order). The
// snapshot is taken under the callback lock and every callback is invoked
// with it released, so a re-entrant call into the workspace from inside a
// callback cannot deadlock.
func (w *Workspace) dispatch(name string, value anyvalue.Value, connected bool) {
	generic, named := w.callbacks.snapshot(name)
	for _, r := range generic {
		r.cb(name, value, connected)
	}
	for _, r := range named {
		r.cb(name, value, connected)
	}
	w.waiter.notify(name, connected)

	w.mu.RLock()
	obs := w.obs
	w.mu.RUnlock()
	if obs != nil {
		obs.OnEvent(context.Background(), observability.Event{
			Type:      EventVariableChanged,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    name,
			Data:      map[string]any{"connected": connected},
		})
	}
}
