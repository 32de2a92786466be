package node

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/observability"
	"github.com/foldlink/foldlink/internal/session"
	"github.com/foldlink/foldlink/internal/wire"
)

var (
	ErrDuplicateHandler = errors.New("node: handler already registered for event")
	ErrServerClosed     = errors.New("node: server closed")
)

// Session is the per-connection state a handler can read and update. The
// login handler attaches the authenticated account; every later request on
// the same connection sees it.
type Session struct {
	NodeID     string
	Nick       string
	RemoteAddr string

	mu        sync.Mutex
	accountID string
}

// SetAccount marks the connection as authenticated for accountID.
func (s *Session) SetAccount(accountID string) {
	s.mu.Lock()
	s.accountID = accountID
	s.mu.Unlock()
}

// AccountID returns the authenticated account, empty before login.
func (s *Session) AccountID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID
}

// HandlerFunc services one request event. The returned reply's code is
// stamped from the request before transmission, so handlers need not copy it.
type HandlerFunc func(ctx context.Context, sess *Session, req d2d.Request) (d2d.Reply, error)

// ServerConfig configures the accepting side of a node.
type ServerConfig struct {
	Address  string
	NodeID   string
	Nick     string
	Session  session.Config
	Registry *d2d.Registry
}

// Server accepts D2D connections and routes requests by their node event tag
// through a table fixed before Serve starts.
type Server struct {
	cfg      ServerConfig
	handlers map[d2d.NodeEvent]HandlerFunc
	logger   zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return nil, ErrNodeIDRequired
	}
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Session.ValidateServerTransport(); err != nil {
		return nil, err
	}
	if cfg.Registry == nil {
		cfg.Registry = d2d.DefaultRegistry()
	}
	return &Server{
		cfg:      cfg,
		handlers: make(map[d2d.NodeEvent]HandlerFunc),
		conns:    make(map[net.Conn]struct{}),
		logger:   log.With().Str("node", cfg.NodeID).Logger(),
	}, nil
}

// Register installs fn for event. The routing table is built once at startup;
// a second registration for the same event is a wiring mistake.
func (s *Server) Register(event d2d.NodeEvent, fn HandlerFunc) error {
	if _, exists := s.handlers[event]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, event)
	}
	s.handlers[event] = fn
	return nil
}

// Listen binds the configured address, wrapping the listener in TLS when
// enabled.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	if s.cfg.Session.TLS.Enabled {
		tlsCfg, err := s.cfg.Session.ServerTLSConfig()
		if err != nil {
			_ = ln.Close()
			return err
		}
		ln = tls.NewListener(ln, tlsCfg)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listen address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or the listener closes.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("node: listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			return err
		}
		s.trackConn(conn)
		go func() {
			defer s.untrackConn(conn)
			s.ServeConn(ctx, conn)
		}()
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// Close stops the listener and drops every live connection.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ln := s.listener
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

// ServeConn runs the hello handshake and then the receive loop on conn until
// it errors or ctx is cancelled. Exported so tests can drive a connection
// over net.Pipe.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	logger := s.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()

	_ = conn.SetDeadline(time.Now().Add(s.cfg.Session.HandshakeTimeout))
	reader := bufio.NewReader(conn)
	hello, err := session.ReadHello(reader)
	if err != nil {
		logger.Debug().Err(err).Msg("node: hello failed")
		return
	}
	ack := session.HelloAck{
		Status:      session.AckStatusAccepted,
		NodeID:      s.cfg.NodeID,
		TimestampMS: uint64(time.Now().UnixMilli()),
	}
	if hello.ProtocolVersion != wire.Version {
		ack.Status = session.AckStatusRejected
		ack.Code = uint32(d2d.StatusBadRequest)
		ack.Message = fmt.Sprintf("unsupported protocol version %d", hello.ProtocolVersion)
	}
	if err := session.WriteHelloAck(conn, ack); err != nil {
		logger.Debug().Err(err).Msg("node: hello ack failed")
		return
	}
	if ack.Status != session.AckStatusAccepted {
		logger.Info().Str("peer", hello.NodeID).Str("reason", ack.Message).
			Msg("node: peer rejected")
		return
	}
	_ = conn.SetDeadline(time.Time{})

	sess := &Session{
		NodeID:     hello.NodeID,
		Nick:       hello.Nick,
		RemoteAddr: conn.RemoteAddr().String(),
	}
	logger = logger.With().Str("peer", hello.NodeID).Logger()
	logger.Info().Msg("node: peer connected")

	var writeMu sync.Mutex
	writeReply := func(reply d2d.Reply) {
		env, err := d2d.Encode(reply)
		if err != nil {
			logger.Error().Err(err).Str("type", reply.WireName()).Msg("node: encode reply failed")
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Session.WriteTimeout))
		if err := wire.WriteEnvelope(conn, env, wire.DefaultLimits()); err != nil {
			logger.Debug().Err(err).Msg("node: write reply failed")
			return
		}
		observability.RecordMessage(s.cfg.NodeID, "out", reply.WireName())
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.Session.ReadTimeout))
		env, err := wire.ReadEnvelope(reader, wire.DefaultLimits())
		if err != nil {
			logger.Debug().Err(err).Msg("node: connection closed")
			return
		}
		observability.RecordMessage(s.cfg.NodeID, "in", env.Name)

		msg, err := s.cfg.Registry.Decode(env)
		if err != nil {
			// One undecodable message never kills the session.
			if errors.Is(err, d2d.ErrUnhandled) {
				observability.RecordDecodeFailure(s.cfg.NodeID, "unhandled")
				logger.Debug().Str("type", env.Name).Msg("node: unhandled message type")
			} else {
				observability.RecordDecodeFailure(s.cfg.NodeID, "malformed")
				logger.Debug().Err(err).Str("type", env.Name).Msg("node: undecodable message")
			}
			continue
		}

		switch m := msg.(type) {
		case d2d.Request:
			s.dispatch(ctx, sess, m, writeReply, logger)
		case *d2d.Ping:
			env, err := d2d.Encode(&d2d.Pong{Text: m.Text})
			if err == nil {
				writeMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.Session.WriteTimeout))
				_ = wire.WriteEnvelope(conn, env, wire.DefaultLimits())
				writeMu.Unlock()
			}
		default:
			logger.Debug().Str("type", env.Name).Msg("node: ignoring message")
		}
	}
}

// dispatch runs the precondition gate and the routing table for one request.
// Every outcome produces a reply whose code echoes the request code.
func (s *Server) dispatch(ctx context.Context, sess *Session, req d2d.Request, writeReply func(d2d.Reply), logger zerolog.Logger) {
	if err := req.Validate(); err != nil {
		logger.Debug().Err(err).Str("type", req.WireName()).Msg("node: request rejected")
		if reply := d2d.RejectionReply(req, d2d.StatusBadRequest); reply != nil {
			writeReply(reply)
		}
		return
	}

	handler, ok := s.handlers[req.NodeEvent()]
	if !ok {
		logger.Warn().Str("event", string(req.NodeEvent())).Msg("node: no handler for event")
		if reply := d2d.RejectionReply(req, d2d.StatusUnavailable); reply != nil {
			writeReply(reply)
		}
		return
	}

	reply, err := handler(ctx, sess, req)
	if err != nil || reply == nil {
		if err != nil {
			logger.Error().Err(err).Str("event", string(req.NodeEvent())).Msg("node: handler failed")
		}
		reply = d2d.RejectionReply(req, d2d.StatusInternalError)
		if reply == nil {
			return
		}
	}
	d2d.StampReplyCode(reply, req.RequestCode())
	writeReply(reply)
}
