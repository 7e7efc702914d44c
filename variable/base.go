package variable

import (
	"sync"

	"github.com/oac-tree/sequencer/anyvalue"
)

// base supplies the mutex-guarded value/availability storage and the
// notify-callback plumbing shared by every back-end. Value access and
// notification use independent locks so the callback can be invoked with
// the value lock released thread-safety requirement.
type base struct {
	valueMu   sync.RWMutex
	value     anyvalue.Value
	available bool

	notifyMu sync.Mutex
	notify   NotifyFunc
}

func (b *base) SetNotifyCallback(fn NotifyFunc) {
	b.notifyMu.Lock()
	b.notify = fn
	b.notifyMu.Unlock()
}

func (b *base) IsAvailable() bool {
	b.valueMu.RLock()
	defer b.valueMu.RUnlock()
	return b.available
}

func (b *base) rawValue() anyvalue.Value {
	b.valueMu.RLock()
	defer b.valueMu.RUnlock()
	return b.value
}

// publish stores the new value/availability and fires the notify callback
// with the value lock released.
func (b *base) publish(v anyvalue.Value, available bool) {
	b.valueMu.Lock()
	b.value = v
	b.available = available
	b.valueMu.Unlock()

	b.notifyMu.Lock()
	fn := b.notify
	b.notifyMu.Unlock()
	if fn != nil {
		fn(v, available)
	}
}
