package notify

import (
	"slices"
	"sync"
	"time"

	"github.com/jobcraft/jobcraft/internal/apierror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

const (
	DefaultTTL = 5 * time.Second
	NetworkTTL = 8 * time.Second
)

// Notification is a transient message for the user.
type Notification struct {
	ID        string        `json:"id"`
	Severity  Severity      `json:"severity"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Publisher is the part of the bus producers depend on.
type Publisher interface {
	Publish(sev Severity, message string, ttl time.Duration) string
}

// SeverityFor maps an error category to the severity it is shown with.
func SeverityFor(t apierror.Type) Severity {
	switch t {
	case apierror.Network, apierror.RateLimit, apierror.Maintenance:
		return Warning
	case apierror.Validation, apierror.Payment:
		return Info
	default:
		return Error
	}
}

// TTLFor returns how long a notification for t stays visible.
func TTLFor(t apierror.Type) time.Duration {
	if t == apierror.Network {
		return NetworkTTL
	}
	return DefaultTTL
}

type entry struct {
	Notification
	timer *time.Timer
}

// Bus keeps the active notifications and expires them on their own. Publishing
// never blocks on the consumer beyond the subscribed sinks.
type Bus struct {
	mu     sync.Mutex
	active []*entry
	sinks  []func(Notification)
	ttl    time.Duration
	closed bool
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func New(logger *zap.Logger, ttl time.Duration) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Bus{
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Subscribe registers a sink called synchronously for every published
// notification.
func (b *Bus) Subscribe(sink func(Notification)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish enqueues a notification and returns its id. A ttl <= 0 uses the
// bus default. Publishing on a closed bus is a no-op returning "".
func (b *Bus) Publish(sev Severity, message string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = b.ttl
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Debug("dropping notification on closed bus", zap.String("message", message))
		return ""
	}

	n := Notification{
		ID:        b.newID(),
		Severity:  sev,
		Message:   message,
		Duration:  ttl,
		CreatedAt: b.now(),
	}
	e := &entry{Notification: n}
	e.timer = time.AfterFunc(ttl, func() { b.Dismiss(n.ID) })
	b.active = append(b.active, e)
	sinks := slices.Clone(b.sinks)
	b.mu.Unlock()

	b.logger.Debug("notification published",
		zap.String("id", n.ID),
		zap.String("severity", string(sev)),
		zap.Duration("ttl", ttl),
	)

	for _, sink := range sinks {
		sink(n)
	}

	return n.ID
}

// Dismiss removes a notification before it expires. Unknown ids are ignored.
func (b *Bus) Dismiss(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.active {
		if e.ID != id {
			continue
		}
		e.timer.Stop()
		b.active = append(b.active[:i], b.active[i+1:]...)
		return
	}
}

// Active returns the visible notifications, oldest first.
func (b *Bus) Active() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notification, 0, len(b.active))
	for _, e := range b.active {
		out = append(out, e.Notification)
	}
	return out
}

// Close stops every pending expiry and drops the queue.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.active {
		e.timer.Stop()
	}
	b.active = nil
	b.closed = true
}
