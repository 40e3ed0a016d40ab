// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hearth-home/hearth/lib/secret"
)

// Compile-time interface check.
var _ Channel = (*Memory)(nil)

// Memory is an in-process Channel for tests. Subscriptions live in an
// internal table, status and auth are flipped directly by the test,
// and every operation is recorded so tests can assert on the exact
// sequence of channel calls the console issued.
type Memory struct {
	mu            sync.Mutex
	status        Status
	authed        bool
	credential    string
	subscriptions map[SubscriptionID]memorySubscription
	ops           []Op
	failTopics    map[string]int
	notify        Notify
}

type memorySubscription struct {
	Topic    string
	Category Category
	callback Callback
}

// Op records one channel operation for test assertions.
type Op struct {
	// Kind is "subscribe", "unsubscribe", "auth", "drop_auth",
	// "connect", or "disconnect".
	Kind     string
	Topic    string
	Category Category
	ID       SubscriptionID
}

// NewMemory creates an in-process channel. AcceptCredential is the
// credential AuthenticatePrivileged will grant; empty accepts any.
func NewMemory(acceptCredential string) *Memory {
	return &Memory{
		credential:    acceptCredential,
		subscriptions: make(map[SubscriptionID]memorySubscription),
		failTopics:    make(map[string]int),
	}
}

// SetNotify registers the status and auth notifications. Tests wire
// this to the console under test.
func (m *Memory) SetNotify(notify Notify) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = notify
}

// Connect marks the channel connected.
func (m *Memory) Connect(_ context.Context) error {
	m.record(Op{Kind: "connect"})
	m.SetStatus(StatusConnected)
	return nil
}

// Disconnect marks the channel disconnected and drops auth.
func (m *Memory) Disconnect() {
	m.record(Op{Kind: "disconnect"})
	m.setAuthed(false)
	m.SetStatus(StatusDisconnected)
}

// Status reports the current state.
func (m *Memory) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetStatus flips the connection state directly, as a test fixture
// for daemon-side disconnects. Notifies on change.
func (m *Memory) SetStatus(status Status) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	notify := m.notify.StatusChanged
	m.mu.Unlock()

	if changed && notify != nil {
		notify(status)
	}
}

// AuthenticatePrivileged grants when the credential matches.
func (m *Memory) AuthenticatePrivileged(_ context.Context, credential *secret.Buffer) (bool, error) {
	m.record(Op{Kind: "auth"})
	m.mu.Lock()
	accept := m.credential == "" || credential.String() == m.credential
	m.mu.Unlock()
	if !accept {
		return false, nil
	}
	m.setAuthed(true)
	return true, nil
}

// DropPrivileged clears privileged authentication.
func (m *Memory) DropPrivileged() {
	m.record(Op{Kind: "drop_auth"})
	m.setAuthed(false)
}

// PrivilegedAuthenticated reports the auth flag.
func (m *Memory) PrivilegedAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authed
}

// setAuthed flips the auth flag and notifies on change. Exposed to
// tests via SetAuthed for simulating daemon-side auth expiry.
func (m *Memory) setAuthed(authed bool) {
	m.mu.Lock()
	changed := m.authed != authed
	m.authed = authed
	notify := m.notify.AuthChanged
	m.mu.Unlock()

	if changed && notify != nil {
		notify(authed)
	}
}

// SetAuthed flips the privileged-authenticated flag directly.
func (m *Memory) SetAuthed(authed bool) {
	m.setAuthed(authed)
}

// FailSubscribe makes the next n Subscribe calls for topic fail with
// a daemon limit error.
func (m *Memory) FailSubscribe(topic string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTopics[topic] = n
}

// Subscribe registers a subscription and mints an ID.
func (m *Memory) Subscribe(topic string, category Category, callback Callback) (SubscriptionID, error) {
	m.mu.Lock()
	if m.status != StatusConnected {
		m.mu.Unlock()
		return "", ErrDisconnected
	}
	if remaining := m.failTopics[topic]; remaining > 0 {
		m.failTopics[topic] = remaining - 1
		m.mu.Unlock()
		m.record(Op{Kind: "subscribe", Topic: topic, Category: category})
		return "", &DaemonError{Code: ErrCodeLimitExceeded, Message: "scripted failure", StatusCode: 429}
	}

	id := SubscriptionID(uuid.NewString())
	m.subscriptions[id] = memorySubscription{
		Topic:    topic,
		Category: category,
		callback: callback,
	}
	m.mu.Unlock()

	m.record(Op{Kind: "subscribe", Topic: topic, Category: category, ID: id})
	return id, nil
}

// Unsubscribe removes a subscription. Unknown IDs are a no-op.
func (m *Memory) Unsubscribe(id SubscriptionID) error {
	m.mu.Lock()
	subscription, known := m.subscriptions[id]
	delete(m.subscriptions, id)
	m.mu.Unlock()

	if known {
		m.record(Op{Kind: "unsubscribe", Topic: subscription.Topic, Category: subscription.Category, ID: id})
	}
	return nil
}

// Deliver routes an event to every subscription on its topic.
func (m *Memory) Deliver(event Event) {
	m.mu.Lock()
	var callbacks []Callback
	for _, subscription := range m.subscriptions {
		if subscription.Topic == event.Topic {
			callbacks = append(callbacks, subscription.callback)
		}
	}
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback(event)
	}
}

// Active returns the topics of live subscriptions, with categories.
func (m *Memory) Active() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []Op
	for id, subscription := range m.subscriptions {
		active = append(active, Op{Topic: subscription.Topic, Category: subscription.Category, ID: id})
	}
	return active
}

// Ops returns the recorded operation log.
func (m *Memory) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]Op, len(m.ops))
	copy(ops, m.ops)
	return ops
}

// ResetOps clears the recorded operation log.
func (m *Memory) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

func (m *Memory) record(op Op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}
