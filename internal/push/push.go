// Package push delivers meal alerts to live clients over UDP. Clients
// subscribe with their user id and receive alert datagrams; a user without
// a live subscription is reported unreachable so the notification engine
// can prune them.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mensahub/internal/notify"
)

// Message is one outbound alert datagram.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Choices   []notify.Choice `json:"choices,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// subscribeRequest is what clients send to manage their subscription.
type subscribeRequest struct {
	Type   string `json:"type"` // SUBSCRIBE, UNSUBSCRIBE, PING
	UserID string `json:"user_id"`
}

type subscriber struct {
	userID   string
	addr     *net.UDPAddr
	lastSeen time.Time
}

// Server listens for subscription datagrams and implements
// notify.Messenger for alert delivery.
type Server struct {
	conn    *net.UDPConn
	log     *zap.Logger
	timeout time.Duration

	mu          sync.RWMutex
	subscribers map[string]*subscriber

	done chan struct{}
}

// NewServer binds the UDP push socket. timeout is how long a silent
// subscriber stays deliverable before expiring.
func NewServer(port int, timeout time.Duration, log *zap.Logger) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("resolving push address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for push clients: %w", err)
	}
	return &Server{
		conn:        conn,
		log:         log,
		timeout:     timeout,
		subscribers: make(map[string]*subscriber),
		done:        make(chan struct{}),
	}, nil
}

// Start serves subscription requests and expires silent subscribers until
// Shutdown is called.
func (s *Server) Start() {
	s.log.Info("push server listening", zap.String("addr", s.conn.LocalAddr().String()))
	go s.expireLoop()
	go s.readLoop()
}

// Shutdown stops the server and closes the socket.
func (s *Server) Shutdown() error {
	close(s.done)
	return s.conn.Close()
}

func (s *Server) readLoop() {
	buffer := make([]byte, 4096)
	for {
		n, addr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.Warn("push read failed", zap.Error(err))
				continue
			}
		}
		s.handleRequest(buffer[:n], addr)
	}
}

func (s *Server) handleRequest(data []byte, addr *net.UDPAddr) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.Warn("bad push request", zap.String("from", addr.String()), zap.Error(err))
		return
	}

	switch req.Type {
	case "SUBSCRIBE":
		s.mu.Lock()
		s.subscribers[req.UserID] = &subscriber{
			userID:   req.UserID,
			addr:     addr,
			lastSeen: time.Now(),
		}
		s.mu.Unlock()
		s.log.Info("push client subscribed", zap.String("user", req.UserID))
		s.reply(addr, "SUBSCRIBED", "Subscribed to meal alerts")
	case "UNSUBSCRIBE":
		s.mu.Lock()
		delete(s.subscribers, req.UserID)
		s.mu.Unlock()
		s.log.Info("push client unsubscribed", zap.String("user", req.UserID))
		s.reply(addr, "UNSUBSCRIBED", "Unsubscribed")
	case "PING":
		s.mu.Lock()
		if sub, ok := s.subscribers[req.UserID]; ok {
			sub.lastSeen = time.Now()
		}
		s.mu.Unlock()
		s.conn.WriteToUDP([]byte(`{"type":"PONG"}`), addr)
	default:
		s.log.Warn("unknown push request type", zap.String("type", req.Type))
	}
}

func (s *Server) reply(addr *net.UDPAddr, msgType, text string) {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Text:      text,
		Timestamp: time.Now(),
	}
	if data, err := json.Marshal(msg); err == nil {
		s.conn.WriteToUDP(data, addr)
	}
}

func (s *Server) expireLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, sub := range s.subscribers {
				if now.Sub(sub.lastSeen) > s.timeout {
					delete(s.subscribers, id)
					s.log.Info("push client expired", zap.String("user", id))
				}
			}
			s.mu.Unlock()
		}
	}
}

// Send delivers one alert to the recipient's live subscription. A missing
// or expired subscription classifies as unreachable.
func (s *Server) Send(ctx context.Context, recipientID, text string, choices []notify.Choice) error {
	s.mu.RLock()
	sub, ok := s.subscribers[recipientID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("user %s has no live subscription: %w", recipientID, notify.ErrUnreachable)
	}

	msg := Message{
		ID:        uuid.NewString(),
		Type:      "MEAL_ALERT",
		Text:      text,
		Choices:   choices,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling push message: %w", err)
	}
	if _, err := s.conn.WriteToUDP(data, sub.addr); err != nil {
		return fmt.Errorf("sending push message to %s: %w", recipientID, err)
	}
	return nil
}
