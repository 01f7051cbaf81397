package rpc

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/runtime"
)

type server struct {
	sess *runtime.Session
	log  *zap.Logger
}

type method func(context.Context, *jsonrpc2.Request) (any, error)

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		result, err := fn(ctx, req)
		if err != nil {
			var wire *jsonrpc2.Error
			if stderrors.As(err, &wire) {
				return nil, wire
			}
			return nil, toWireError(err)
		}
		return encodeRefs(result), nil
	})
}

func (s *server) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		MethodInvoke:       s.invoke,
		MethodInvokeMethod: s.invokeMethod,
	})
}

func (s *server) ref(id string) any {
	return iabridge.Ref{ID: id}
}

func (s *server) invoke(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var p InvokeParams
	if err := unmarshalParams(req, &p); err != nil {
		return nil, err
	}
	return s.sess.Invoke(ctx, p.Target, p.Op, decodeArgs(p.Args, s.ref)...)
}

func (s *server) invokeMethod(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var p InvokeMethodParams
	if err := unmarshalParams(req, &p); err != nil {
		return nil, err
	}
	h, err := s.sess.Object(p.ObjectID)
	if err != nil {
		return nil, err
	}
	return h.InvokeMethod(ctx, p.Op, decodeArgs(p.Args, s.ref)...)
}

// notifier forwards session events to the peer as notifications.
type notifier struct {
	ctx  context.Context
	conn *jsonrpc2.Conn
	log  *zap.Logger
}

func (n *notifier) FireEvent(listenerID string, args []any) {
	params := FireEventParams{ListenerID: listenerID, Args: encodeArgs(args)}
	if params.Args == nil {
		params.Args = []any{}
	}
	if err := n.conn.Notify(n.ctx, MethodFireEvent, params); err != nil {
		n.log.Debug("event notification failed", zap.String("listener", listenerID), zap.Error(err))
	}
}

func (n *notifier) FireRuntimeReady() {
	if err := n.conn.Notify(n.ctx, MethodFireRuntimeReady, nil); err != nil {
		n.log.Debug("ready notification failed", zap.Error(err))
	}
}

// Serve exposes rt on one connection through a new session. It returns when
// the connection closes or ctx is done.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, rt *runtime.Runtime, opts ...Option) error {
	o := buildOptions(opts)
	sess := rt.NewSession()
	log := o.logger.With(zap.String("session", sess.ID()))
	s := &server{sess: sess, log: log}

	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		s.handler())
	sess.Attach(&notifier{ctx: ctx, conn: conn, log: log})
	log.Info("connection opened")

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
	}

	err := sess.Close()
	if cerr := conn.Close(); cerr != nil && !stderrors.Is(cerr, jsonrpc2.ErrClosed) {
		err = multierr.Append(err, cerr)
	}
	log.Info("connection closed")
	return err
}

// ServeListener accepts connections on ln and serves each one until ctx is
// done. It closes ln before returning.
func ServeListener(ctx context.Context, ln net.Listener, rt *runtime.Runtime, opts ...Option) error {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for {
		conn, err := ln.Accept()
		if err != nil {
			stopped := ctx.Err() != nil
			cancel()
			wg.Wait()
			if stopped || stderrors.Is(err, net.ErrClosed) {
				return errs
			}
			return multierr.Append(errs, err)
		}
		o.logger.Debug("accepted connection", zap.Stringer("remote", conn.RemoteAddr()))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := Serve(ctx, conn, rt, opts...); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}()
	}
}
