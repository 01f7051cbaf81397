package bridge

import (
	"time"

	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
)

// DefaultTickInterval is the event loop period.
const DefaultTickInterval = 100 * time.Millisecond

// DefaultCallTimeout bounds remote calls the bridge issues on its own behalf,
// such as listener removal.
const DefaultCallTimeout = 5 * time.Second

// DeliveryMode selects how repeated firings of one listener between ticks are handled.
type DeliveryMode int

const (
	// DeliverLatest keeps only the most recent firing per listener ID.
	DeliverLatest DeliveryMode = iota
	// DeliverAll keeps every firing in arrival order.
	DeliverAll
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliverLatest:
		return "latest"
	case DeliverAll:
		return "all"
	default:
		return "unknown"
	}
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	logger       *zap.Logger
	target       string
	tickInterval time.Duration
	callTimeout  time.Duration
	delivery     DeliveryMode
	deepMarshal  bool
}

func defaultOptions() *options {
	return &options{
		target:       iabridge.RuntimeTarget,
		tickInterval: DefaultTickInterval,
		callTimeout:  DefaultCallTimeout,
		delivery:     DeliverLatest,
	}
}

// WithLogger sets the bridge logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTickInterval sets the event loop period. Non-positive values are ignored.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithCallTimeout bounds remote calls the bridge issues without a caller context.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithDeliveryMode selects coalesced or queued event delivery.
func WithDeliveryMode(m DeliveryMode) Option {
	return func(o *options) { o.delivery = m }
}

// WithDeepMarshal makes marshalling descend into []any and map[string]any
// values instead of inspecting top-level arguments only.
func WithDeepMarshal(deep bool) Option {
	return func(o *options) { o.deepMarshal = deep }
}

// WithRuntimeTarget overrides the target category used for target-level operations.
func WithRuntimeTarget(target string) Option {
	return func(o *options) {
		if target != "" {
			o.target = target
		}
	}
}
