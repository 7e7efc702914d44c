// Package ui implements the UserInterface/asynchronous-input contract
// from a correlation-ID pending-reply map, grounded on
// orchestrate/hub/hub.go's Request method (responseChannels keyed by a
// generated ID, a select across reply/cancellation/timeout) — here the
// correlation survives past a single call, since a user-value/choice
// request can outlive the tick that issued it.
package ui

import (
	"sync"
	"sync/atomic"

	"github.com/oac-tree/sequencer/anyvalue"
)

// UserValueRequest asks the host for a value matching template's type.
type UserValueRequest struct {
	Template    anyvalue.Value
	Description string
}

// UserChoiceRequest asks the host to pick one of options.
type UserChoiceRequest struct {
	Options  []string
	Metadata anyvalue.Value
}

// UserValueReply answers a UserValueRequest.
type UserValueReply struct {
	OK    bool
	Value anyvalue.Value
}

// UserChoiceReply answers a UserChoiceRequest.
type UserChoiceReply struct {
	OK    bool
	Index int
}

type pending struct {
	isChoice bool
	replyCh  chan any // UserValueReply or UserChoiceReply
	done     chan struct{}
}

// OnRequest is called once per new pending request, with its id and
// payload (a UserValueRequest or a UserChoiceRequest).
type OnRequest func(id uint64, payload any)

// OnInterrupt is called when a pending request is abandoned before a
// reply arrives (the owning future was dropped).
type OnInterrupt func(id uint64)

// AsyncInputAdapter binds the UserInterface's blocking-looking
// RequestUserValue/RequestUserChoice calls to a pair of host callbacks,
// generating monotonically increasing request ids and correlating each
// reply back to its waiter.
type AsyncInputAdapter struct {
	nextID atomic.Uint64

	onRequest   OnRequest
	onInterrupt OnInterrupt

	mu      sync.Mutex
	waiting map[uint64]*pending
}

// New constructs an adapter bound to the host's request/interrupt hooks.
func New(onRequest OnRequest, onInterrupt OnInterrupt) *AsyncInputAdapter {
	return &AsyncInputAdapter{
		onRequest:   onRequest,
		onInterrupt: onInterrupt,
		waiting:     make(map[uint64]*pending),
	}
}

func (a *AsyncInputAdapter) register(isChoice bool, payload any) (uint64, *pending) {
	id := a.nextID.Add(1)
	p := &pending{isChoice: isChoice, replyCh: make(chan any, 1), done: make(chan struct{})}
	a.mu.Lock()
	a.waiting[id] = p
	a.mu.Unlock()
	if a.onRequest != nil {
		a.onRequest(id, payload)
	}
	return id, p
}

func (a *AsyncInputAdapter) resolve(id uint64) (*pending, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.waiting[id]
	if ok {
		delete(a.waiting, id)
	}
	return p, ok
}

// RequestUserValue blocks until a matching Reply(id, ...) arrives or
// cancel is closed (dropping the future); cancel may be
// nil to block indefinitely.
func (a *AsyncInputAdapter) RequestUserValue(template anyvalue.Value, description string, cancel <-chan struct{}) (anyvalue.Value, bool) {
	id, p := a.register(false, UserValueRequest{Template: template, Description: description})
	select {
	case v := <-p.replyCh:
		reply, _ := v.(UserValueReply)
		return reply.Value, reply.OK
	case <-cancel:
		a.interrupt(id)
		return anyvalue.Value{}, false
	}
}

// RequestUserChoice is RequestUserValue's counterpart for a choice among
// options.
func (a *AsyncInputAdapter) RequestUserChoice(options []string, metadata anyvalue.Value, cancel <-chan struct{}) (int, bool) {
	id, p := a.register(true, UserChoiceRequest{Options: options, Metadata: metadata})
	select {
	case v := <-p.replyCh:
		reply, _ := v.(UserChoiceReply)
		return reply.Index, reply.OK
	case <-cancel:
		a.interrupt(id)
		return 0, false
	}
}

func (a *AsyncInputAdapter) interrupt(id uint64) {
	if _, ok := a.resolve(id); ok && a.onInterrupt != nil {
		a.onInterrupt(id)
	}
}

// ReplyValue delivers a UserValueReply for a pending value request.
// Replying to an unknown id, or with the wrong reply kind for the
// pending request, is a no-op ("mismatched reply/request
// types are rejected").
func (a *AsyncInputAdapter) ReplyValue(id uint64, reply UserValueReply) {
	a.mu.Lock()
	p, ok := a.waiting[id]
	if !ok || p.isChoice {
		a.mu.Unlock()
		return
	}
	delete(a.waiting, id)
	a.mu.Unlock()
	p.replyCh <- reply
}

// ReplyChoice delivers a UserChoiceReply for a pending choice request.
func (a *AsyncInputAdapter) ReplyChoice(id uint64, reply UserChoiceReply) {
	a.mu.Lock()
	p, ok := a.waiting[id]
	if !ok || !p.isChoice {
		a.mu.Unlock()
		return
	}
	delete(a.waiting, id)
	a.mu.Unlock()
	p.replyCh <- reply
}

// Interrupt cancels a pending request as if its future had been dropped,
// notifying onInterrupt. A no-op if id is unknown (already answered or
// already interrupted).
func (a *AsyncInputAdapter) Interrupt(id uint64) {
	a.interrupt(id)
}
