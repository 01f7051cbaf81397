package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/bridge"
	"github.com/wippyai/ia-bridge/config"
	"github.com/wippyai/ia-bridge/rpc"
	"github.com/wippyai/ia-bridge/wasmhost"
)

// readyTimeout bounds the wait for the runtime ready signal.
const readyTimeout = 10 * time.Second

// session is a started bridge plus whatever feeds it.
type session struct {
	bridge *bridge.Bridge
	client *bridge.Client
	target string
	log    *zap.Logger

	// resolve maps object IDs fired by a guest to handles; local runtimes only.
	resolve wasmhost.RefResolver

	closers []func(context.Context) error
}

// connect builds a bridge over a served runtime, or over an in-process sample
// runtime when local is set, waits for the ready signal and wraps the client.
func connect(ctx context.Context, cfg *config.Config, log *zap.Logger, local bool) (*session, error) {
	s := &session{log: log}

	var (
		host   iabridge.Host
		attach func(iabridge.Notifier)
		ready  func()
	)
	if local {
		rt, err := newSampleRuntime(log)
		if err != nil {
			return nil, err
		}
		sess := rt.NewSession()
		host, attach, ready = sess, sess.Attach, rt.Ready
		s.resolve = func(id string) any {
			h, err := sess.Object(id)
			if err != nil {
				return nil
			}
			return h
		}
		s.target = "local sample runtime"
		s.closers = append(s.closers, func(context.Context) error {
			return multierr.Combine(sess.Close(), rt.Close())
		})
	} else {
		c, err := rpc.Dial(ctx, cfg.Addr, rpc.WithLogger(log))
		if err != nil {
			return nil, err
		}
		host, attach = c, c.Attach
		s.target = cfg.Addr
		s.closers = append(s.closers, func(context.Context) error { return c.Close() })
	}

	s.bridge = bridge.New(host, append(cfg.Options(), bridge.WithLogger(log))...)
	s.closers = append(s.closers, func(context.Context) error { return s.bridge.Close() })
	if err := s.bridge.Start(ctx); err != nil {
		return nil, multierr.Append(err, s.Close(ctx))
	}

	readyCh := make(chan struct{})
	s.bridge.OnReady(func() { close(readyCh) })
	attach(s.bridge)
	if ready != nil {
		ready()
	}

	if cfg.Guest != "" {
		if err := s.loadGuest(ctx, cfg.Guest); err != nil {
			return nil, multierr.Append(err, s.Close(ctx))
		}
	}

	select {
	case <-readyCh:
	case <-time.After(readyTimeout):
		return nil, multierr.Append(fmt.Errorf("runtime at %s did not become ready", s.target), s.Close(ctx))
	case <-ctx.Done():
		return nil, multierr.Append(ctx.Err(), s.Close(ctx))
	}

	client, err := s.bridge.CreateClient(ctx)
	if err != nil {
		return nil, multierr.Append(err, s.Close(ctx))
	}
	s.client = client
	return s, nil
}

// loadGuest instantiates a guest module that fires into the bridge and runs
// its start export, when it has one.
func (s *session) loadGuest(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}
	opts := []wasmhost.Option{wasmhost.WithLogger(s.log)}
	if s.resolve != nil {
		opts = append(opts, wasmhost.WithRefResolver(s.resolve))
	}
	g, err := wasmhost.Load(ctx, data, s.bridge, opts...)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, g.Close)

	if _, err := g.Call(ctx, "start"); err != nil {
		s.log.Debug("guest start skipped", zap.Error(err))
	}
	s.log.Info("guest loaded", zap.String("path", path))
	return nil
}

// Close releases everything connect set up, most recent first.
func (s *session) Close(ctx context.Context) error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i](ctx))
	}
	s.closers = nil
	return err
}
