// Package realtime keeps a live WebSocket subscription to the notification
// server and feeds decoded notifications into the store.
package realtime

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
)

const (
	defaultReconnectDelay      = 5 * time.Second
	defaultInitialFailureDelay = 10 * time.Second
	defaultPingPeriod          = 15 * time.Second
	defaultSendTimeout         = 5 * time.Second
	defaultReadLimit           = 1 << 20 // 1MB
	defaultHandshakeTimeout    = 10 * time.Second
)

// ErrClientShuttingDown is returned by Start after Close.
var ErrClientShuttingDown = errors.New("client is shutting down")

// State is the connection state of the client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config defines settings for the real-time client.
type Config struct {
	// Endpoint is the WebSocket URL of the notification server.
	Endpoint string

	// ReconnectDelay is the wait after an established connection closed.
	ReconnectDelay time.Duration

	// InitialFailureDelay is the wait after a dial that never connected.
	InitialFailureDelay time.Duration

	PingPeriod       time.Duration
	SendTimeout      time.Duration
	HandshakeTimeout time.Duration
	TLSInsecureSkip  bool

	// Clock drives the reconnect timer and the ping ticker.
	Clock clock.Clock
}

// Client is a self-healing subscription to the notification endpoint.
//
// A single run loop owns the socket, so there is never more than one
// connection or connection attempt in flight. Every close, whatever the
// cause, dispatches SET_CONNECTION(false) and arms the reconnect timer.
type Client struct {
	cfg        Config
	dispatcher drepo.Dispatcher
	decoder    *Decoder
	metrics    drepo.Metrics
	logger     *logger.Logger

	state   atomic.Int32
	started atomic.Bool
	closed  atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	wg      sync.WaitGroup

	mu    sync.Mutex
	conn  *websocket.Conn
	timer *clock.Timer
}

// NewClient returns a client that is not yet connected.
func NewClient(cfg Config, d drepo.Dispatcher, dec *Decoder, metrics drepo.Metrics, l *logger.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint URL is required")
	}
	if d == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.InitialFailureDelay <= 0 {
		cfg.InitialFailureDelay = defaultInitialFailureDelay
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = defaultPingPeriod
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if dec == nil {
		dec = NewDecoder(cfg.Clock)
	}

	return &Client{
		cfg:        cfg,
		dispatcher: d,
		decoder:    dec,
		metrics:    metrics,
		logger:     l.Component("realtime").With(logger.String("endpoint", cfg.Endpoint)),
	}, nil
}

// Start launches the run loop. It returns immediately; connection failures
// are handled by the reconnect loop, not reported here.
func (c *Client) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientShuttingDown
	}
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("client already started")
	}
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) run() {
	c.logger.Info("starting real-time client")
	defer c.logger.Info("real-time client stopped")

	for {
		if c.ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		c.setState(StateConnecting)
		delay := c.cfg.ReconnectDelay
		conn, err := c.dial(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				c.setState(StateDisconnected)
				return
			}
			c.metrics.RecordError("ws_dial")
			delay = c.cfg.InitialFailureDelay
		} else {
			c.serve(conn)
		}

		c.dispatchConnection(false)
		if !c.wait(delay) {
			return
		}
		c.metrics.RecordReconnect()
	}
}

// wait arms the reconnect timer and blocks until it fires or the client
// shuts down. The state only becomes disconnected once the timer exists.
func (c *Client) wait(delay time.Duration) bool {
	t := c.cfg.Clock.Timer(delay)
	c.mu.Lock()
	c.timer = t
	c.mu.Unlock()
	c.setState(StateDisconnected)

	c.logger.Info("reconnect scheduled", logger.Duration("delay", delay))

	defer func() {
		c.mu.Lock()
		c.timer = nil
		c.mu.Unlock()
	}()

	select {
	case <-c.ctx.Done():
		t.Stop()
		return false
	case <-t.C:
		return true
	}
}

// serve runs one connection until it closes.
func (c *Client) serve(conn *websocket.Conn) {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	conn.SetReadLimit(defaultReadLimit)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PingPeriod * 2))
	})

	c.dispatchConnection(true)
	c.setState(StateConnected)

	pingDone := make(chan struct{})
	var pingWG sync.WaitGroup
	pingWG.Add(1)
	go func() {
		defer pingWG.Done()
		c.pingLoop(conn, pingDone)
	}()

	defer func() {
		close(pingDone)
		pingWG.Wait()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case c.ctx.Err() != nil:
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.logger.Info("websocket closed normally", logger.Error(err))
			case websocket.IsUnexpectedCloseError(err):
				c.logger.Warn("unexpected websocket closure", logger.Error(err))
			default:
				c.logger.Warn("websocket read error", logger.Error(err))
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in frame handler", logger.Any("recover", r))
		}
	}()

	rec, ok, err := c.decoder.Decode(data)
	if err != nil {
		c.metrics.RecordDropped("malformed")
		c.logger.Warn("dropping malformed frame", logger.Error(err), logger.Int("bytes", len(data)))
		return
	}
	if !ok {
		c.logger.Debug("ignoring non-notification frame", logger.Int("bytes", len(data)))
		return
	}

	if _, err := c.dispatcher.Dispatch(c.ctx, models.Add{Record: rec}); err != nil {
		c.logger.Debug("notification not dispatched",
			logger.String("id", rec.ID),
			logger.Error(err),
		)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := c.cfg.Clock.Ticker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.SendTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping error", logger.Error(err))
			}
		case <-done:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) dispatchConnection(connected bool) {
	if _, err := c.dispatcher.Dispatch(c.ctx, models.SetConnection{Connected: connected}); err != nil {
		c.logger.Debug("connection state not dispatched", logger.Bool("connected", connected), logger.Error(err))
	}
}

// dial connects and upgrades. The handshake itself does not watch ctx, so the
// raw socket is closed on cancellation to abort a stalled upgrade.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	var (
		rawMu sync.Mutex
		raw   net.Conn
	)
	netDialer := &net.Dialer{Timeout: c.cfg.HandshakeTimeout}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: c.cfg.TLSInsecureSkip},
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		NetDialContext: func(dctx context.Context, network, addr string) (net.Conn, error) {
			nc, err := netDialer.DialContext(dctx, network, addr)
			if err != nil {
				return nil, err
			}
			rawMu.Lock()
			defer rawMu.Unlock()
			if ctx.Err() != nil {
				_ = nc.Close()
				return nil, ctx.Err()
			}
			raw = nc
			return nc, nil
		},
	}

	stop := context.AfterFunc(ctx, func() {
		rawMu.Lock()
		defer rawMu.Unlock()
		if raw != nil {
			_ = raw.Close()
		}
	})
	conn, resp, err := dialer.DialContext(ctx, c.cfg.Endpoint, make(http.Header))
	stop()
	if err != nil {
		if resp != nil {
			c.logger.Warn("connection failed",
				logger.Error(err),
				logger.Int("statusCode", resp.StatusCode),
			)
		} else {
			c.logger.Warn("connection failed", logger.Error(err))
		}
		return nil, err
	}

	c.logger.Info("websocket connection established")
	return conn, nil
}

// Close stops the run loop, cancels any pending reconnect and closes the
// socket. It is safe to call more than once, and before Start.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		if c.timer != nil {
			c.timer.Stop()
		}
		if c.conn != nil {
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = c.conn.Close()
		}
		c.mu.Unlock()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			c.logger.Warn("timeout waiting for client loop to exit")
		}
		c.setState(StateDisconnected)
	})
}
