package scenariokit

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of scenario lifecycle events. Events are
// CloudEvents so they can be forwarded to external reporting systems
// unchanged.
type Observer interface {
	// OnEvent is called for every event the observer subscribed to.
	// Observers should return quickly; hooks wait for them.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject maintains observers and notifies them of events.
type Subject interface {
	// RegisterObserver adds an observer. If eventTypes is empty the
	// observer receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all interested observers.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by the hook manager. Reverse domain notation per the
// CloudEvents specification.
const (
	EventTypeScenarioStarted     = "com.scenariokit.scenario.started"
	EventTypeScenarioFinished    = "com.scenariokit.scenario.finished"
	EventTypeFixturesInvalidated = "com.scenariokit.fixtures.invalidated"
	EventTypeScreenshotCaptured  = "com.scenariokit.screenshot.captured"
	EventTypeScreenshotFailed    = "com.scenariokit.screenshot.failed"
)

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer backed by handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent calls the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID returns the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// EventBus is the default Subject implementation. Observers are notified
// synchronously, in registration order, so hook side effects and their
// events stay in step with the scenario loop.
type EventBus struct {
	mu        sync.RWMutex
	observers []*observerRegistration
	logger    Logger
}

// NewEventBus creates an EventBus. A nil logger discards output.
func NewEventBus(logger Logger) *EventBus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventBus{logger: logger}
}

// RegisterObserver adds observer, replacing any earlier registration with
// the same ID.
func (b *EventBus) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	reg := &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}
	for i, existing := range b.observers {
		if existing.observer.ObserverID() == observer.ObserverID() {
			b.observers[i] = reg
			return nil
		}
	}
	b.observers = append(b.observers, reg)

	b.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes observer if present.
func (b *EventBus) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, existing := range b.observers {
		if existing.observer.ObserverID() == observer.ObserverID() {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			b.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
			break
		}
	}
	return nil
}

// NotifyObservers validates event and delivers it to every interested
// observer. Observer errors and panics are logged, not returned.
func (b *EventBus) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		b.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	b.mu.RLock()
	regs := make([]*observerRegistration, len(b.observers))
	copy(regs, b.observers)
	b.mu.RUnlock()

	for _, reg := range regs {
		if len(reg.eventTypes) > 0 && !reg.eventTypes[event.Type()] {
			continue
		}
		b.deliver(ctx, reg.observer, event)
	}
	return nil
}

func (b *EventBus) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()
	if err := observer.OnEvent(ctx, event); err != nil {
		b.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers returns information about registered observers.
func (b *EventBus) GetObservers() []ObserverInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info := make([]ObserverInfo, 0, len(b.observers))
	for _, reg := range b.observers {
		eventTypes := make([]string, 0, len(reg.eventTypes))
		for eventType := range reg.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		info = append(info, ObserverInfo{
			ID:           reg.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: reg.registeredAt,
		})
	}
	return info
}
