package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// Host module and function names imported by guests.
const (
	ModuleName           = "ia"
	FuncFireEvent        = "fire_event"
	FuncFireRuntimeReady = "fire_runtime_ready"
)

// Option configures Load.
type Option func(*options)

type options struct {
	logger           *zap.Logger
	memoryLimitPages uint32
	resolve          RefResolver
}

// RefResolver turns an object ID fired by the guest into the value the
// notifier receives, typically an iabridge.Handle.
type RefResolver func(id string) any

// WithLogger sets the guest logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMemoryLimitPages caps guest memory, in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *options) { o.memoryLimitPages = pages }
}

// WithRefResolver replaces {"__RuntimeObjectId": id} maps in event
// arguments with resolve(id). Without it such maps are passed through.
func WithRefResolver(resolve RefResolver) Option {
	return func(o *options) { o.resolve = resolve }
}

// Guest is an instantiated guest module wired to a notifier.
type Guest struct {
	runtime  wazero.Runtime
	module   api.Module
	notifier iabridge.Notifier
	resolve  RefResolver
	log      *zap.Logger
}

// Load compiles and instantiates wasm with the ia host module bound to n.
// Start functions are not run; use Call.
func Load(ctx context.Context, wasm []byte, n iabridge.Notifier, opts ...Option) (*Guest, error) {
	if n == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "nil notifier")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	cfg := wazero.NewRuntimeConfig()
	if o.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(o.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	g := &Guest{runtime: rt, notifier: n, resolve: o.resolve, log: o.logger}

	_, err := rt.NewHostModuleBuilder(ModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(g.fireEvent),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export(FuncFireEvent).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(g.fireRuntimeReady), nil, nil).
		Export(FuncFireRuntimeReady).
		Instantiate(ctx)
	if err != nil {
		return nil, multierr.Append(errors.Instantiation(err), rt.Close(ctx))
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, multierr.Append(errors.Load("compile guest", err), rt.Close(ctx))
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("guest").
		WithStartFunctions())
	if err != nil {
		return nil, multierr.Append(errors.Instantiation(err), rt.Close(ctx))
	}
	g.module = mod
	return g, nil
}

// Call runs an exported guest function.
func (g *Guest) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := g.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.New(errors.PhaseTransport, errors.KindRemote).
			Member(name).
			Cause(err).
			Build()
	}
	return results, nil
}

// Close releases the guest and its runtime.
func (g *Guest) Close(ctx context.Context) error {
	return multierr.Combine(g.module.Close(ctx), g.runtime.Close(ctx))
}

func (g *Guest) fireEvent(_ context.Context, m api.Module, stack []uint64) {
	idPtr, idLen := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	argsPtr, argsLen := api.DecodeU32(stack[2]), api.DecodeU32(stack[3])

	mem := m.Memory()
	if mem == nil {
		g.log.Warn("guest fired event without memory")
		return
	}
	id, ok := mem.Read(idPtr, idLen)
	if !ok {
		g.log.Warn("listener ID out of range", zap.Uint32("ptr", idPtr), zap.Uint32("len", idLen))
		return
	}
	listenerID := string(id)

	raw, ok := mem.Read(argsPtr, argsLen)
	if !ok {
		g.log.Warn("event args out of range", zap.String("listener", listenerID))
		return
	}
	args, err := DecodeArgs(raw)
	if err != nil {
		g.log.Warn("dropping event", zap.String("listener", listenerID), zap.Error(err))
		return
	}
	if g.resolve != nil {
		for i, a := range args {
			args[i] = resolveRefs(a, g.resolve)
		}
	}
	g.notifier.FireEvent(listenerID, args)
}

func (g *Guest) fireRuntimeReady(_ context.Context, _ api.Module, _ []uint64) {
	g.notifier.FireRuntimeReady()
}
