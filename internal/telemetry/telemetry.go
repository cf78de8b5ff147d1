// Package telemetry serves the simulation's external collaborator
// interface: a JSON snapshot endpoint and a broadcasting WebSocket
// feed, so a separate visualization process can render the
// simulation without linking against the engine. It is off by default
// and only starts when a listen address is configured.
package telemetry

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Snapshot is one point-in-time rendering of the simulation, sent both
// from the /snapshot endpoint and broadcast to every connected
// WebSocket client on each Publish call.
type Snapshot struct {
	Iteration   uint64         `json:"iteration"`
	EpochMillis uint64         `json:"epoch_millis"`
	Bodies      []BodySnapshot `json:"bodies"`
	Statistics  Statistics     `json:"statistics"`
}

// Statistics mirrors engine.Statistics for wire transport, so a
// remote visualizer can show aggregate energy/momentum/distance
// figures without linking against the engine package.
type Statistics struct {
	BodyCount       int     `json:"body_count"`
	TotalMass       float64 `json:"total_mass"`
	KineticEnergy   float64 `json:"kinetic_energy"`
	PotentialEnergy float64 `json:"potential_energy"`
	TotalEnergy     float64 `json:"total_energy"`
	MinDistance     float64 `json:"min_distance"`
	MaxDistance     float64 `json:"max_distance"`
	AverageDistance float64 `json:"average_distance"`
	CenterOfMassX   float64 `json:"center_of_mass_x"`
	CenterOfMassY   float64 `json:"center_of_mass_y"`
	CenterOfMassZ   float64 `json:"center_of_mass_z"`
	NetMomentumX    float64 `json:"net_momentum_x"`
	NetMomentumY    float64 `json:"net_momentum_y"`
	NetMomentumZ    float64 `json:"net_momentum_z"`
}

// BodySnapshot is one body's reportable state.
type BodySnapshot struct {
	Label       string  `json:"label"`
	Mass        float64 `json:"mass"`
	Radius      float64 `json:"radius"`
	Temperature float64 `json:"temperature"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	VZ          float64 `json:"vz"`
}

type connection struct {
	id        string
	conn      *websocket.Conn
	sendQueue chan []byte
}

// Server broadcasts Snapshot values published by the controller to any
// number of connected WebSocket clients, and answers on-demand GET
// requests for the latest snapshot.
type Server struct {
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	latest   *Snapshot
	nextID   uint64
	conns    map[string]*connection

	pingInterval time.Duration
	httpServer   *http.Server
}

// NewServer constructs a Server; it does not listen until Start is
// called.
func NewServer() *Server {
	return &Server{
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:        make(map[string]*connection),
		pingInterval: 30 * time.Second,
	}
}

// Start begins listening on addr in the background. Call Stop to shut
// it down.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/ws", s.handleWebSocket)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{Handler: mux}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("telemetry: server error: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down and closes every connected client.
func (s *Server) Stop() error {
	s.mu.Lock()
	for _, c := range s.conns {
		close(c.sendQueue)
		c.conn.Close()
	}
	s.conns = make(map[string]*connection)
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// Publish records snap as the latest snapshot and broadcasts it to
// every connected client's send queue. A client whose queue is full is
// dropped rather than allowed to block the publisher.
func (s *Server) Publish(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("telemetry: marshal snapshot: %v", err)
		return
	}

	s.mu.Lock()
	s.latest = &snap
	for id, c := range s.conns {
		select {
		case c.sendQueue <- data:
		default:
			delete(s.conns, id)
			close(c.sendQueue)
			c.conn.Close()
		}
	}
	s.mu.Unlock()
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.latest
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if snap == nil {
		json.NewEncoder(w).Encode(Snapshot{})
		return
	}
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: websocket upgrade: %v", err)
		return
	}

	s.mu.Lock()
	s.nextID++
	c := &connection{id: strconv.FormatUint(s.nextID, 10), conn: conn, sendQueue: make(chan []byte, 16)}
	s.conns[c.id] = c
	s.mu.Unlock()

	go s.sender(c)
	s.reader(c)
}

// reader drains inbound frames (this feed is publish-only, but a
// closed or errored connection must still be reaped) and removes the
// connection once the peer disconnects.
func (s *Server) reader(c *connection) {
	defer func() {
		s.mu.Lock()
		if _, ok := s.conns[c.id]; ok {
			delete(s.conns, c.id)
			close(c.sendQueue)
		}
		s.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) sender(c *connection) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.sendQueue:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
