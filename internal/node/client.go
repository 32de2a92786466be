package node

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/correlate"
	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/observability"
	"github.com/foldlink/foldlink/internal/session"
	"github.com/foldlink/foldlink/internal/wire"
)

var (
	ErrAddressRequired = errors.New("node: server address required")
	ErrNodeIDRequired  = errors.New("node: node_id required")
	ErrHelloRejected   = errors.New("node: hello rejected")
	ErrMissingCode     = errors.New("node: request has no correlation code")
	ErrClientClosed    = errors.New("node: client closed")
)

// ClientConfig configures one client connection to a server node.
type ClientConfig struct {
	Address            string
	NodeID             string
	Nick               string
	Session            session.Config
	MaxConnectAttempts int

	// Generator issues correlation codes; defaults to UUIDv4.
	Generator correlate.Generator
	// Registry decodes inbound envelopes; defaults to the full catalogue.
	Registry *d2d.Registry
	// OnNotification receives uncorrelated messages from the server.
	// Ping is answered internally and never reaches this callback.
	OnNotification func(d2d.Notification)
}

// Client is one logical D2D connection carrying many concurrent
// request/reply exchanges.
type Client struct {
	cfg     ClientConfig
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex
	tracker *correlate.Tracker
	logger  zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial connects, performs the hello handshake with reconnect backoff, and
// starts the receive pump.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if strings.TrimSpace(cfg.NodeID) == "" {
		return nil, ErrNodeIDRequired
	}
	if cfg.Generator == nil {
		cfg.Generator = correlate.UUIDGenerator{}
	}
	if cfg.Registry == nil {
		cfg.Registry = d2d.DefaultRegistry()
	}
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Session.ValidateClientTransport(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var attempt int
	for {
		attempt++
		client, err := dialOnce(ctx, cfg)
		if err == nil {
			return client, nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("addr", cfg.Address).
			Msg("node: dial failed")
		if errors.Is(err, ErrHelloRejected) {
			return nil, err
		}
		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, err
		}
		delay := session.NextBackoffDelay(cfg.Session.Backoff, attempt, rng)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func dialOnce(ctx context.Context, cfg ClientConfig) (*Client, error) {
	dialer := net.Dialer{Timeout: cfg.Session.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	conn := rawConn
	if cfg.Session.TLS.Enabled {
		tlsCfg, err := cfg.Session.ClientTLSConfig(cfg.Address)
		if err != nil {
			_ = rawConn.Close()
			return nil, err
		}
		tlsConn := tls.Client(rawConn, tlsCfg)
		handshakeCtx, cancel := context.WithTimeout(ctx, cfg.Session.HandshakeTimeout)
		err = tlsConn.HandshakeContext(handshakeCtx)
		cancel()
		if err != nil {
			_ = rawConn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	client, err := attach(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

// attach performs the hello handshake on an established conn and starts the
// receive pump. Split from dialing so tests can drive a client over
// net.Pipe.
func attach(conn net.Conn, cfg ClientConfig) (*Client, error) {
	_ = conn.SetDeadline(time.Now().Add(cfg.Session.HandshakeTimeout))
	reader := bufio.NewReader(conn)

	hello := session.Hello{
		NodeID:          cfg.NodeID,
		Nick:            cfg.Nick,
		ProtocolVersion: wire.Version,
	}
	if err := session.WriteHello(conn, hello); err != nil {
		return nil, err
	}
	ack, err := session.ReadHelloAck(reader)
	if err != nil {
		return nil, err
	}
	if ack.Status != session.AckStatusAccepted {
		return nil, fmt.Errorf("%w: code=%d message=%q", ErrHelloRejected, ack.Code, ack.Message)
	}
	_ = conn.SetDeadline(time.Time{})

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		reader:  reader,
		tracker: correlate.NewTracker(),
		logger:  log.With().Str("node", cfg.NodeID).Logger(),
	}
	go c.receiveLoop()
	go c.keepaliveLoop()
	return c, nil
}

// NextCode issues a fresh correlation code for building a request.
func (c *Client) NextCode() string {
	return c.cfg.Generator.NewCode()
}

// Call sends a correlated request and blocks until its reply, the call
// timeout, or ctx cancellation. Replies for other in-flight calls are never
// misdelivered, regardless of arrival order.
func (c *Client) Call(ctx context.Context, req d2d.Request) (d2d.Reply, error) {
	code := strings.TrimSpace(req.RequestCode())
	if code == "" {
		return nil, ErrMissingCode
	}
	if err := c.tracker.Track(code); err != nil {
		return nil, err
	}
	observability.SetPendingRequests(c.cfg.NodeID, c.tracker.PendingCount())

	start := time.Now()
	if err := c.send(req); err != nil {
		c.tracker.Cancel(code)
		observability.SetPendingRequests(c.cfg.NodeID, c.tracker.PendingCount())
		return nil, err
	}

	reply, err := c.tracker.Await(ctx, code, c.cfg.Session.CallTimeout)
	observability.SetPendingRequests(c.cfg.NodeID, c.tracker.PendingCount())
	status := "timeout"
	if err == nil {
		status = reply.Status().String()
	}
	observability.RecordRequestDuration(c.cfg.NodeID, req.WireName(), status, time.Since(start))
	return reply, err
}

// Notify sends a fire-and-forget message.
func (c *Client) Notify(msg d2d.Notification) error {
	return c.send(msg)
}

// Pending exposes the in-flight correlation entries.
func (c *Client) Pending() []correlate.PendingCall {
	return c.tracker.Snapshot()
}

func (c *Client) send(msg d2d.Message) error {
	env, err := d2d.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.Session.WriteTimeout))
	if err := wire.WriteEnvelope(c.conn, env, wire.DefaultLimits()); err != nil {
		return err
	}
	observability.RecordMessage(c.cfg.NodeID, "out", msg.WireName())
	return nil
}

func (c *Client) receiveLoop() {
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.Session.ReadTimeout))
		env, err := wire.ReadEnvelope(c.reader, wire.DefaultLimits())
		if err != nil {
			c.fail(err)
			return
		}
		observability.RecordMessage(c.cfg.NodeID, "in", env.Name)

		msg, err := c.cfg.Registry.Decode(env)
		if err != nil {
			if errors.Is(err, d2d.ErrUnhandled) {
				observability.RecordDecodeFailure(c.cfg.NodeID, "unhandled")
				c.logger.Debug().Str("type", env.Name).Msg("node: unhandled message type")
			} else {
				observability.RecordDecodeFailure(c.cfg.NodeID, "malformed")
				c.logger.Debug().Err(err).Str("type", env.Name).Msg("node: undecodable message")
			}
			continue
		}

		switch m := msg.(type) {
		case d2d.Reply:
			if !c.tracker.Resolve(m) {
				observability.RecordOrphanReply(c.cfg.NodeID)
				c.logger.Debug().Str("reply_code", m.ReplyCode()).Str("type", env.Name).
					Msg("node: orphan reply dropped")
			}
			observability.SetPendingRequests(c.cfg.NodeID, c.tracker.PendingCount())
		case *d2d.Ping:
			_ = c.Notify(&d2d.Pong{Text: m.Text})
		case d2d.Notification:
			if c.cfg.OnNotification != nil {
				c.cfg.OnNotification(m)
			}
		default:
			c.logger.Debug().Str("type", env.Name).Msg("node: ignoring uncorrelated message")
		}
	}
}

func (c *Client) keepaliveLoop() {
	ticker := time.NewTicker(c.cfg.Session.KeepaliveInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := c.Notify(&d2d.Ping{}); err != nil {
			return
		}
	}
}

func (c *Client) fail(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		c.tracker.FailAll(fmt.Errorf("%w: %v", ErrClientClosed, cause))
		_ = c.conn.Close()
	})
}

// Close tears the connection down and fails every pending call.
func (c *Client) Close() error {
	c.fail(ErrClientClosed)
	return nil
}
