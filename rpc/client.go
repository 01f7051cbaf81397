package rpc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/errors"
)

// Option configures a Client or a served connection.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Client is the bridge side of a connection. It implements iabridge.Host.
type Client struct {
	conn *jsonrpc2.Conn
	log  *zap.Logger

	mu       sync.Mutex
	notifier iabridge.Notifier
	pending  []func(iabridge.Notifier)
}

var _ iabridge.Host = (*Client)(nil)

// NewClient starts a client on an established stream.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, opts ...Option) *Client {
	o := buildOptions(opts)
	c := &Client{log: o.logger}
	c.conn = jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(c.handle))
	return c
}

// Dial connects to a host served over TCP.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTransport, errors.KindRemote, err, "dial "+addr)
	}
	return NewClient(ctx, conn, opts...), nil
}

// Attach routes host notifications to n. Notifications received before the
// first Attach are replayed in order.
func (c *Client) Attach(n iabridge.Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
	for _, fn := range c.pending {
		fn(n)
	}
	c.pending = nil
}

func (c *Client) notify(fn func(iabridge.Notifier)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifier == nil {
		c.pending = append(c.pending, fn)
		return
	}
	fn(c.notifier)
}

// handle serves notifications from the host. It runs on the connection's
// read loop, so it must not block.
func (c *Client) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case MethodFireEvent:
		var p FireEventParams
		if err := unmarshalParams(req, &p); err != nil {
			c.log.Debug("malformed event notification", zap.Error(err))
			return nil, err
		}
		args := decodeArgs(p.Args, c.handleRef)
		c.notify(func(n iabridge.Notifier) { n.FireEvent(p.ListenerID, args) })
		return nil, nil

	case MethodFireRuntimeReady:
		c.notify(func(n iabridge.Notifier) { n.FireRuntimeReady() })
		return nil, nil

	default:
		return nil, errMethodNotFound
	}
}

func (c *Client) handleRef(id string) any {
	return &remoteHandle{client: c, id: id}
}

// Invoke runs a target-level operation on the host.
func (c *Client) Invoke(ctx context.Context, target, op string, args ...any) (any, error) {
	params := InvokeParams{Target: target, Op: op, Args: encodeArgs(args)}
	return c.call(ctx, MethodInvoke, params, target, op)
}

func (c *Client) call(ctx context.Context, method string, params any, object, member string) (any, error) {
	var raw json.RawMessage
	if err := c.conn.Call(ctx, method, params, &raw); err != nil {
		if stderrors.Is(err, jsonrpc2.ErrClosed) {
			return nil, errors.Closed(errors.PhaseTransport, "rpc client")
		}
		return nil, fromWireError(err, object, member)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.New(errors.PhaseTransport, errors.KindInvalidData).
			Object(object).
			Member(member).
			Cause(err).
			Build()
	}
	return decodeRefs(v, c.handleRef), nil
}

// DisconnectNotify is closed when the connection is gone.
func (c *Client) DisconnectNotify() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

// Close closes the connection.
func (c *Client) Close() error {
	err := c.conn.Close()
	if stderrors.Is(err, jsonrpc2.ErrClosed) {
		return nil
	}
	return err
}

// remoteHandle is an object living on the other end of the connection.
type remoteHandle struct {
	client *Client
	id     string
}

var _ iabridge.Handle = (*remoteHandle)(nil)

func (h *remoteHandle) ObjectID() string {
	return h.id
}

func (h *remoteHandle) InvokeMethod(ctx context.Context, op string, args ...any) (any, error) {
	params := InvokeMethodParams{ObjectID: h.id, Op: op, Args: encodeArgs(args)}
	return h.client.call(ctx, MethodInvokeMethod, params, h.id, op)
}
