package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"ferrum/internal/engine"
	"ferrum/internal/host"
)

const (
	maxRecvSize     = 4 * 1024
	defaultNWorkers = 10
	readTimeout     = 5 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// clientSession tracks one long-lived TCP connection.
type clientSession struct {
	conn net.Conn
}

// clientMessage links a parsed wire message to the connection it arrived on.
type clientMessage struct {
	clientAddr string
	message    Message
}

// Server is the TCP order-entry endpoint. It keeps the teacher's
// accept-loop/worker-pool/session-handler split (internal/net/server.go)
// structurally intact; what changed is what sits behind it — a *host.Host
// routing by opaque asset string instead of a single AssetType-keyed Engine
// interface.
type Server struct {
	address string
	port    int
	host    *host.Host
	pool    *host.WorkerPool

	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]clientSession

	messages chan clientMessage
}

func New(address string, port int, h *host.Host, workers int) *Server {
	if workers < 1 {
		workers = defaultNWorkers
	}
	s := &Server{
		address:  address,
		port:     port,
		host:     h,
		pool:     host.NewWorkerPool(workers),
		sessions: make(map[string]clientSession),
		messages: make(chan clientMessage, 64),
	}
	h.AddReporter(s)
	return s
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server listening")

	for {
		select {
		case <-ctx.Done():
			return t.Wait()
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("client connected")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// ReportEvents implements host.Reporter. It is called synchronously from
// the asset's serialized request path (internal/host.Host.Submit), so it
// must not block for long.
func (s *Server) ReportEvents(asset string, events []engine.Event) {
	for _, ev := range events {
		owner, ok := ownerOf(ev)
		if !ok {
			continue
		}
		addr := addressForOwner(owner)
		if addr == "" {
			continue
		}
		s.sessionsMu.Lock()
		sess, ok := s.sessions[addr]
		s.sessionsMu.Unlock()
		if !ok {
			continue
		}
		if _, err := sess.conn.Write(EncodeEvent(asset, ev)); err != nil {
			log.Error().Err(err).Str("address", addr).Msg("unable to deliver report")
			s.deleteSession(addr)
		}
	}
}

func ownerOf(ev engine.Event) (engine.OwnerID, bool) {
	switch e := ev.(type) {
	case engine.OpenedEvent:
		return e.Owner, true
	case engine.FilledEvent:
		return e.Owner, true
	case engine.CanceledEvent:
		return e.Owner, true
	case engine.BounceEvent:
		return e.Owner, true
	default:
		return engine.OwnerID{}, false
	}
}

// ownerAddr remembers which connection last submitted a request on behalf of
// a given OwnerID, so ReportEvents knows where to deliver the resulting
// events. This is process-local bookkeeping; a multi-node deployment would
// replace it with a session directory service, which is out of scope here.
var (
	ownerAddrMu sync.Mutex
	ownerAddr   = make(map[engine.OwnerID]string)
)

func recordOwnerAddress(owner engine.OwnerID, addr string) {
	ownerAddrMu.Lock()
	ownerAddr[owner] = addr
	ownerAddrMu.Unlock()
}

func addressForOwner(owner engine.OwnerID) string {
	ownerAddrMu.Lock()
	defer ownerAddrMu.Unlock()
	return ownerAddr[owner]
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddr).Msg("error handling message")
				s.writeError(msg.clientAddr, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch msg.message.GetType() {
	case NewOrder:
		order, ok := msg.message.(NewOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		req, err := order.OpenRequest()
		if err != nil {
			return err
		}
		recordOwnerAddress(req.Owner, msg.clientAddr)
		s.host.Submit(order.Asset, req)

	case CancelOrder:
		order, ok := msg.message.(CancelOrderMessage)
		if !ok {
			return ErrImproperConversion
		}
		req := order.CancelRequest()
		recordOwnerAddress(req.Owner, msg.clientAddr)
		s.host.Submit(order.Asset, req)

	case LogBook:
		logReq, ok := msg.message.(LogBookMessage)
		if !ok {
			return ErrImproperConversion
		}
		snap, ok := s.host.Snapshot(logReq.Asset)
		if !ok {
			return fmt.Errorf("%w: asset %q has no book yet", ErrClientDoesNotExist, logReq.Asset)
		}
		log.Info().
			Str("asset", logReq.Asset).
			Int("bidLevels", len(snap.Bids)).
			Int("askLevels", len(snap.Asks)).
			Msg("book snapshot")

	case Heartbeat:
		// presence of the connection is the heartbeat; nothing to do

	default:
		return ErrInvalidMessageType
	}
	return nil
}

// handleConnection reads the next frame off conn, hands it to
// sessionHandler, then re-enqueues the connection so another worker picks up
// its next frame — the same rotation scheme the teacher's handleConnection
// used.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	select {
	case <-t.Dying():
		return conn.Close()
	default:
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed setting read deadline")
		s.closeSession(conn)
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("connection read ended")
		s.closeSession(conn)
		return nil
	}

	message, err := parseMessage(buffer[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
		s.writeError(conn.RemoteAddr().String(), err)
		s.pool.AddTask(conn)
		return nil
	}

	s.messages <- clientMessage{clientAddr: conn.RemoteAddr().String(), message: message}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) writeError(addr string, err error) {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[addr]
	s.sessionsMu.Unlock()
	if !ok {
		return
	}
	if _, werr := sess.conn.Write(EncodeError("", err)); werr != nil {
		log.Error().Err(werr).Str("address", addr).Msg("unable to write error report")
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(addr string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, addr)
}

func (s *Server) closeSession(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	s.deleteSession(addr)
	if err := conn.Close(); err != nil {
		log.Debug().Err(err).Str("address", addr).Msg("error closing connection")
	}
}
