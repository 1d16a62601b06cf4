package broadcast

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sooth/audio-capture-library/audiocore"
	"github.com/sooth/audio-capture-library/audiocore/collector"
	"github.com/sooth/audio-capture-library/internal/errors"
	"github.com/sooth/audio-capture-library/internal/logging"
)

type serverState int

const (
	serverUnconfigured serverState = iota
	serverConfigured
	serverStreaming
	serverClosed
)

// Server is the audiocore.Sink side of the TCP broadcast protocol: it
// listens for client connections and fans every converted buffer out to
// all of them, isolating one client's write failure from the rest.
type Server struct {
	id   string
	addr string

	mu        sync.Mutex
	st        serverState
	format    audiocore.AudioFormat
	listener  net.Listener
	clients   map[net.Conn]*clientConn
	startedAt time.Time

	packetsSent prometheus.Counter
	bytesSent   prometheus.Counter

	logger *slog.Logger
}

type clientConn struct {
	conn net.Conn
	mu   sync.Mutex
}

// NewServer creates a broadcast sink bound to addr (e.g. ":9876"). It
// does not start listening until Configure is called.
func NewServer(id, addr string, registry prometheus.Registerer, logger *slog.Logger) *Server {
	s := &Server{
		id:      id,
		addr:    addr,
		clients: make(map[net.Conn]*clientConn),
		logger:  logging.Named(logger, "broadcast"),
		packetsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "audiocapture_broadcast_packets_sent_total",
			Help:        "Audio packets sent by the broadcast sink.",
			ConstLabels: prometheus.Labels{"sink_id": id},
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "audiocapture_broadcast_bytes_sent_total",
			Help:        "Audio bytes sent by the broadcast sink.",
			ConstLabels: prometheus.Labels{"sink_id": id},
		}),
	}
	if registry != nil {
		registry.MustRegister(s.packetsSent, s.bytesSent)
	}
	return s
}

func (s *Server) ID() string { return s.id }

// Configure opens the listener and starts accepting clients.
func (s *Server) Configure(format audiocore.AudioFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st != serverUnconfigured {
		return errors.New(audiocore.ErrSinkAlreadyConfigured).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.New(err).
			Component(audiocore.ComponentAudioCore).
			Category(errors.CategoryNetwork).
			Context("operation", "listen").
			Context("addr", s.addr).
			Build()
	}

	s.listener = ln
	s.format = format
	s.startedAt = time.Now()
	s.st = serverConfigured

	go s.acceptLoop()
	s.logger.Info("broadcast sink listening", "sink_id", s.id, "addr", ln.Addr().String())
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.addClient(conn)
	}
}

func (s *Server) addClient(conn net.Conn) {
	s.mu.Lock()
	format := s.format
	cc := &clientConn{conn: conn}
	s.clients[conn] = cc
	s.mu.Unlock()

	s.logger.Info("broadcast client connected", "sink_id", s.id, "remote", conn.RemoteAddr().String())

	if err := s.writeTo(cc, encodeFormatHeader(format)); err != nil {
		s.dropClient(conn)
		return
	}

	go s.keepAliveLoop(conn, cc)
}

// keepAliveLoop enforces the 30s per-client read timeout from spec §4.5:
// any byte read from the client is treated as a keepalive ping; a read
// timeout triggers an outgoing keepalive rather than disconnecting.
func (s *Server) keepAliveLoop(conn net.Conn, cc *clientConn) {
	buf := make([]byte, 1)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, err := conn.Read(buf)
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			if s.writeTo(cc, []byte{packetTypeKeepAlive}) != nil {
				s.dropClient(conn)
				return
			}
			continue
		}
		s.dropClient(conn)
		return
	}
}

func (s *Server) dropClient(conn net.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	_ = conn.Close()
	s.logger.Info("broadcast client disconnected", "sink_id", s.id)
}

func (s *Server) writeTo(cc *clientConn, data []byte) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_ = cc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := cc.conn.Write(data)
	return err
}

// Process encodes buf as an audio packet and broadcasts it to every
// connected client; a write failure on one client only drops that
// client, never the broadcast to the others.
func (s *Server) Process(_ context.Context, buf audiocore.AudioBuffer) error {
	s.mu.Lock()
	if s.st == serverConfigured {
		s.st = serverStreaming
	}
	format := s.format
	startedAt := s.startedAt
	clients := make([]struct {
		conn net.Conn
		cc   *clientConn
	}, 0, len(s.clients))
	for conn, cc := range s.clients {
		clients = append(clients, struct {
			conn net.Conn
			cc   *clientConn
		}{conn, cc})
	}
	s.mu.Unlock()

	data := collector.InterleaveBytes(buf, format)
	timestampUs := uint64(time.Since(startedAt).Microseconds())
	packet := encodeAudioPacket(timestampUs, buf.FrameCount, data)

	for _, c := range clients {
		if err := s.writeTo(c.cc, packet); err != nil {
			s.dropClient(c.conn)
			continue
		}
		s.packetsSent.Inc()
		s.bytesSent.Add(float64(len(packet)))
	}
	return nil
}

// HandleError logs broadcast-sink processing failures.
func (s *Server) HandleError(err error) {
	s.logger.Error("broadcast sink processing error", "sink_id", s.id, "error", err)
}

// Finish sends an end-of-stream packet to every client, then closes all
// connections and the listener.
func (s *Server) Finish() error {
	s.mu.Lock()
	if s.st == serverClosed {
		s.mu.Unlock()
		return errors.New(audiocore.ErrSinkFinished).
			Component(audiocore.ComponentAudioCore).
			Context("sink_id", s.id).
			Build()
	}
	startedAt := s.startedAt
	clients := make([]*clientConn, 0, len(s.clients))
	conns := make([]net.Conn, 0, len(s.clients))
	for conn, cc := range s.clients {
		clients = append(clients, cc)
		conns = append(conns, conn)
	}
	s.st = serverClosed
	s.mu.Unlock()

	end := encodeEndPacket(uint64(time.Since(startedAt).Microseconds()))
	for _, cc := range clients {
		_ = s.writeTo(cc, end)
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.logger.Info("broadcast sink closed", "sink_id", s.id)
	return nil
}

// ConnectionCount reports the current number of connected clients.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

