package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"depthview/internal/chart"
	"depthview/internal/poller"
	"depthview/internal/types"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MessageType string

const (
	MessageTypeFrame MessageType = "frame"
	MessageTypeError MessageType = "error"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	sendBufferSize  = 16
	shutdownTimeout = 5 * time.Second
)

// Controller accepts runtime controls and reports loop status
type Controller interface {
	Submit(ctx context.Context, ctl poller.Control) error
	Status() poller.Status
}

// ClientMessage represents messages sent from client to server
type ClientMessage struct {
	Type              string  `json:"type"`
	Granularity       float64 `json:"granularity,omitempty"`
	PricePrecision    *int32  `json:"pricePrecision,omitempty"`
	QuantityPrecision *int32  `json:"quantityPrecision,omitempty"`
	Symbol            string  `json:"symbol,omitempty"`
}

// Control converts the wire message into a poller control
func (m ClientMessage) Control() poller.Control {
	return poller.Control{
		Type:              poller.ControlType(m.Type),
		Granularity:       types.Granularity(m.Granularity),
		PricePrecision:    m.PricePrecision,
		QuantityPrecision: m.QuantityPrecision,
		Symbol:            m.Symbol,
	}
}

// FrameMessage wraps a frame for the browser
type FrameMessage struct {
	Type  MessageType  `json:"type"`
	Frame *chart.Frame `json:"frame"`
}

// ErrorMessage reports a rejected client message
type ErrorMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

// HealthResponse is served on /api/health
type HealthResponse struct {
	Status  string        `json:"status"`
	Clients int           `json:"clients"`
	Poller  poller.Status `json:"poller"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Server pushes frames to browsers and accepts display controls
type Server struct {
	port       string
	router     *mux.Router
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	clientsMux sync.RWMutex
	controller Controller
	logger     *zap.Logger

	latestMux sync.RWMutex
	latest    []byte // encoded FrameMessage

	httpServer *http.Server
}

// NewServer creates a server listening on port
func NewServer(port string, controller Controller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		port:       port,
		clients:    make(map[*client]bool),
		controller: controller,
		logger:     logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/frame", s.handleFrame).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/controls", s.handleControls).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down and disconnects clients
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("port", s.port))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.closeClients()
	s.logger.Info("server stopped")
	return err
}

// Publish stores frame as the latest and pushes it to every client. Slow
// clients whose buffers are full are disconnected.
func (s *Server) Publish(ctx context.Context, frame *chart.Frame) error {
	payload, err := json.Marshal(FrameMessage{Type: MessageTypeFrame, Frame: frame})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.latestMux.Lock()
	s.latest = payload
	s.latestMux.Unlock()

	var slow []*client
	s.clientsMux.RLock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	s.clientsMux.RUnlock()

	for _, c := range slow {
		s.logger.Warn("dropping slow client", zap.String("client_id", c.id))
		s.removeClient(c)
	}
	return nil
}

// ClientCount returns the number of connected browsers
func (s *Server) ClientCount() int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	s.latestMux.RLock()
	if s.latest != nil {
		c.send <- s.latest
	}
	s.latestMux.RUnlock()

	s.clientsMux.Lock()
	s.clients[c] = true
	s.clientsMux.Unlock()

	s.logger.Info("client connected", zap.String("client_id", c.id), zap.String("remote", r.RemoteAddr))

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.removeClient(c)
		s.logger.Info("client disconnected", zap.String("client_id", c.id))
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			s.logger.Debug("invalid client message", zap.String("client_id", c.id), zap.Error(err))
			s.sendError(c, "invalid message")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err = s.controller.Submit(ctx, clientMsg.Control())
		cancel()
		if err != nil {
			s.logger.Info("control rejected", zap.String("client_id", c.id), zap.String("type", clientMsg.Type), zap.Error(err))
			s.sendError(c, err.Error())
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("write failed", zap.String("client_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendError(c *client, msg string) {
	payload, err := json.Marshal(ErrorMessage{Type: MessageTypeError, Error: msg})
	if err != nil {
		return
	}
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	if !s.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (s *Server) removeClient(c *client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeClients() {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.latestMux.RLock()
	payload := s.latest
	s.latestMux.RUnlock()

	if payload == nil {
		writeJSON(w, http.StatusNotFound, ErrorMessage{Type: MessageTypeError, Error: "no frame yet"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.controller.Status()
	resp := HealthResponse{
		Status:  "ok",
		Clients: s.ClientCount(),
		Poller:  status,
	}
	if status.LastSuccess.IsZero() {
		resp.Status = "starting"
	} else if status.LastError != "" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	var msg ClientMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorMessage{Type: MessageTypeError, Error: "invalid message"})
		return
	}

	if err := s.controller.Submit(r.Context(), msg.Control()); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, types.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorMessage{Type: MessageTypeError, Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
