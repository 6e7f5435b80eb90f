// Package transport implements the engine.Transport collaborator over UDP
// CoAP, using github.com/GiterLab/go-coap for message framing exactly as
// the client this follows uses it for its own request/response traffic.
package transport

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	coap "github.com/GiterLab/go-coap"
	"github.com/rs/zerolog"

	"github.com/nfi/contiki-lwm2m/engine"
)

const maxDatagramSize = 1500

// responseWriter adapts engine.ResponseWriter to a coap.Message reply.
type responseWriter struct {
	message coap.Message
}

func (w *responseWriter) SetCode(code engine.Code) { w.message.Code = coap.CCode(code) }

func (w *responseWriter) SetContentFormat(cf int) {
	w.message.SetOption(coap.ContentFormat, coap.MediaType(cf))
}

func (w *responseWriter) Write(payload []byte) { w.message.Payload = payload }

// Server listens for CoAP datagrams, dispatches each request into reg via
// engine.Dispatch, and replies with the matching ACK. It also implements
// engine.Transport, so a single Server instance backs both directions of
// traffic the way the teacher's Coap type serves both roles over one
// net.Conn.
type Server struct {
	conn *net.UDPConn
	reg  *engine.Registry
	log  zerolog.Logger

	mu            sync.Mutex
	nextMessageID uint16
	pending       map[uint16]chan coap.Message

	// dispatchMu serializes engine.Dispatch calls. Serve hands each
	// datagram to its own goroutine for read/write concurrency, but the
	// Registry's object and resource state follows the single-threaded-
	// access model documented on Registry.Register: only one Dispatch may
	// touch that state at a time. BlockingPost does not take this lock.
	dispatchMu sync.Mutex
}

// NewServer opens a UDP listener on addr (host:port, empty host binds all
// interfaces) and returns a Server bound to reg.
func NewServer(addr string, reg *engine.Registry, log zerolog.Logger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Server{
		conn:    conn,
		reg:     reg,
		log:     log,
		pending: make(map[uint16]chan coap.Message),
	}, nil
}

// Close releases the underlying UDP socket.
func (s *Server) Close() error { return s.conn.Close() }

// Serve reads datagrams until ctx is canceled or the socket errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		go s.handleDatagram(raw, peer)
	}
}

func (s *Server) handleDatagram(raw []byte, peer *net.UDPAddr) {
	msg, err := coap.ParseMessage(raw)
	if err != nil {
		s.log.Debug().Err(err).Str("peer", peer.String()).Msg("dropping malformed CoAP datagram")
		return
	}

	if msg.Type == coap.Acknowledgement {
		s.resolvePending(msg)
		return
	}
	if !msg.IsConfirmable() {
		return
	}

	req := &engine.Request{
		Path:          msg.PathString(),
		ContentFormat: contentFormatOf(msg, coap.ContentFormat),
		Payload:       msg.Payload,
	}
	if accept, ok := acceptOf(msg); ok {
		req.HasAccept = true
		req.Accept = accept
	}
	req.Method, err = methodOf(msg.Code)
	if err != nil {
		s.log.Debug().Err(err).Str("peer", peer.String()).Msg("dropping CoAP request with unsupported method")
		return
	}

	w := &responseWriter{message: coap.Message{
		Type:      coap.Acknowledgement,
		MessageID: msg.MessageID,
		Token:     msg.Token,
	}}
	s.dispatchMu.Lock()
	engine.Dispatch(s.reg, req, w)
	s.dispatchMu.Unlock()

	out, err := w.message.MarshalBinary()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal CoAP response")
		return
	}
	if _, err := s.conn.WriteToUDP(out, peer); err != nil {
		s.log.Warn().Err(err).Str("peer", peer.String()).Msg("failed to send CoAP response")
	}
}

func (s *Server) resolvePending(msg coap.Message) {
	s.mu.Lock()
	ch, ok := s.pending[msg.MessageID]
	if ok {
		delete(s.pending, msg.MessageID)
	}
	s.mu.Unlock()
	if ok {
		ch <- msg
	}
}

// BlockingPost implements engine.Transport: it sends a confirmable POST to
// addr and blocks until the matching ACK arrives or ctx expires, mirroring
// the teacher's channel-per-MessageID wait in SendRequest/ReadCoapMessage.
func (s *Server) BlockingPost(ctx context.Context, addr, path string, query []string, payload []byte) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", addr, err)
	}

	token := make([]byte, 8)
	if _, err := rand.Read(token); err != nil {
		return fmt.Errorf("transport: generate token: %w", err)
	}

	s.mu.Lock()
	messageID := s.nextMessageID
	s.nextMessageID++
	ch := make(chan coap.Message, 1)
	s.pending[messageID] = ch
	s.mu.Unlock()

	msg := coap.Message{
		Type:      coap.Confirmable,
		Code:      coap.POST,
		MessageID: messageID,
		Token:     token,
		Payload:   payload,
	}
	msg.SetPathString(strings.TrimPrefix(path, "/"))
	if len(query) > 0 {
		msg.SetOption(coap.URIQuery, query)
	}

	raw, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("transport: marshal request: %w", err)
	}
	if _, err := s.conn.WriteToUDP(raw, udpAddr); err != nil {
		return fmt.Errorf("transport: send to %s: %w", addr, err)
	}

	select {
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, messageID)
		s.mu.Unlock()
		return ctx.Err()
	case ack := <-ch:
		if ack.Code >= 128 {
			return fmt.Errorf("transport: server responded with error code %d", ack.Code)
		}
		return nil
	}
}

func methodOf(code coap.CCode) (engine.Method, error) {
	switch code {
	case coap.GET:
		return engine.MethodGet, nil
	case coap.PUT:
		return engine.MethodPut, nil
	case coap.POST:
		return engine.MethodPost, nil
	case coap.DELETE:
		return engine.MethodDelete, nil
	default:
		return 0, fmt.Errorf("unsupported CoAP method code %d", code)
	}
}

func contentFormatOf(msg coap.Message, option coap.OptionID) int {
	v := msg.Option(option)
	if v == nil {
		return engine.ContentFormatPlainText
	}
	mt, ok := v.(coap.MediaType)
	if !ok {
		return engine.ContentFormatPlainText
	}
	return int(mt)
}

// acceptOf reports the request's Accept option, if any. A GET typically
// carries no Accept at all, which engine.Request.HasAccept=false
// leaves as the TLV default rather than misreading as a plain-text ask.
func acceptOf(msg coap.Message) (int, bool) {
	v := msg.Option(coap.Accept)
	if v == nil {
		return 0, false
	}
	mt, ok := v.(coap.MediaType)
	if !ok {
		return 0, false
	}
	return int(mt), true
}

// HostPort joins a host and a numeric port with net.JoinHostPort. An IPv6
// literal is passed without brackets; the result brackets it.
func HostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
