// Package event is the typed event bus and logger: ten fixed event
// kinds, synchronous FIFO dispatch per emitter, and a logger that
// mirrors every receipt and flags slow queries.
package event

import (
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/polyquery/polyquery"
)

// Kind identifies one of the fixed event shapes.
type Kind string

const (
	KindConnected        Kind = "connected"
	KindDisconnected     Kind = "disconnected"
	KindReconnecting     Kind = "reconnecting"
	KindReconnected      Kind = "reconnected"
	KindError            Kind = "error"
	KindOperation        Kind = "operation"
	KindSlowQuery        Kind = "slow-query"
	KindPoolStatus       Kind = "pool-status"
	KindGuardrailBlocked Kind = "guardrail-blocked"
	KindShutdown         Kind = "shutdown"
)

// Event is the fixed payload shape shared by every kind; fields not
// relevant to a given Kind are left zero.
type Event struct {
	// ID correlates an operation event with its slow-query counterpart
	// and with whatever the embedding program logs alongside it; minted
	// automatically by Emit when left blank.
	ID         string
	Kind       Kind
	Time       time.Time
	Backend    string
	Collection string
	Operation  string
	Receipt    *polyquery.Receipt
	Err        *polyquery.Error
	Reason     string

	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Downtime    time.Duration

	Pool polyquery.PoolStatus
}

// Handler receives events of one kind, in the order they were
// registered. A handler that blocks blocks every subsequent handler
// and the emitter itself. Callers that need to do slow work should
// hand off to their own worker.
type Handler func(Event)

// Bus is a process-wide, concurrency-safe multiplexer from event
// kind to an ordered list of handlers, plus the built-in operation/
// slow-query logger.
type Bus struct {
	mu            sync.Mutex
	handlers      map[Kind][]Handler
	logger        *zap.Logger
	slowThreshold time.Duration
}

// New returns a Bus that logs through logger (see NewLogger for the
// TTY-aware default) and flags operations at or above slowThreshold
// as slow-query events.
func New(logger *zap.Logger, slowThreshold time.Duration) *Bus {
	return &Bus{
		handlers:      make(map[Kind][]Handler),
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// NewLogger builds a zap logger whose encoder depends on whether
// stdout is a terminal: a colorized console encoder when interactive,
// structured JSON otherwise (log aggregators, CI).
func NewLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// On registers h to run, in FIFO order with any handler already
// registered for kind, whenever Emit is called with that kind.
func (b *Bus) On(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Emit dispatches e synchronously to every handler registered for
// e.Kind, in registration order.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[e.Kind]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}

// Record is the logger half of the event package: it emits an
// `operation` event for every receipt and, when the receipt's
// duration is at or above
// the configured slow threshold, also emits a `slow-query` event.
// Both events are logged via zap.
func (b *Bus) Record(r polyquery.Receipt) {
	ev := Event{
		ID:         uuid.NewString(),
		Kind:       KindOperation,
		Backend:    r.Backend,
		Collection: r.Collection,
		Operation:  string(r.Operation),
		Receipt:    &r,
	}
	b.Emit(ev)
	b.logOperation(ev)

	if b.slowThreshold > 0 && r.Duration >= b.slowThreshold {
		slow := ev
		slow.Kind = KindSlowQuery
		b.Emit(slow)
		b.logSlowQuery(slow)
	}
}

func (b *Bus) logOperation(ev Event) {
	if b.logger == nil {
		return
	}
	b.logger.Info("operation",
		zap.String("backend", ev.Backend),
		zap.String("collection", ev.Collection),
		zap.String("operation", ev.Operation),
		zap.Duration("duration", ev.Receipt.Duration),
		zap.Bool("success", ev.Receipt.Success),
	)
}

func (b *Bus) logSlowQuery(ev Event) {
	if b.logger == nil {
		return
	}
	b.logger.Warn("slow query",
		zap.String("backend", ev.Backend),
		zap.String("collection", ev.Collection),
		zap.String("operation", ev.Operation),
		zap.String("duration", humanize.RelTime(ev.Time.Add(-ev.Receipt.Duration), ev.Time, "", "")),
	)
}
