package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/mancala-backend/internal/apperror"
	"github.com/rocketscienceinc/mancala-backend/internal/entity"
	"github.com/rocketscienceinc/mancala-backend/internal/observability"
)

const (
	readLimit       = 4096
	shutdownTimeout = 5 * time.Second
)

type sessionStore interface {
	CreateSession(ctx context.Context, participantID string) (entity.Room, error)
	JoinSession(ctx context.Context, code, participantID string) (entity.Room, error)
	GetRoom(ctx context.Context, code string) (entity.Room, error)
	ApplyMove(ctx context.Context, code string, pitIndex int, participantID string) (entity.Room, error)
	ResetSession(ctx context.Context, code string) (entity.Room, error)
	RemoveParticipant(ctx context.Context, participantID string) []entity.Room
	Count() int
}

type Options struct {
	// BasePath prefixes the /ws endpoint, e.g. "/mancala".
	BasePath string
	// AllowedOrigins lists browser origins allowed to connect. Empty allows any.
	AllowedOrigins []string
}

type Server struct {
	logger   *slog.Logger
	store    sessionStore
	options  Options
	upgrader websocket.Upgrader

	handlers map[string]func(ctx context.Context, message *Message, conn *connection) error

	connections      map[string]*connection
	connectionsMutex sync.RWMutex
}

func New(logger *slog.Logger, store sessionStore, options Options) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		store:   store,
		options: options,

		handlers:    make(map[string]func(context.Context, *Message, *connection) error),
		connections: make(map[string]*connection),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[actionRoomCreate] = server.handleCreateRoom
	server.handlers[actionRoomJoin] = server.handleJoinRoom
	server.handlers[actionGameMove] = server.handleMove
	server.handlers[actionGameReset] = server.handleReset
	server.handlers[actionGameState] = server.handleState

	return server
}

// Path is where the endpoint is mounted.
func (that *Server) Path() string {
	return strings.TrimSuffix(that.options.BasePath, "/") + "/ws"
}

func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(that.Path(), func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}

		that.closeAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.options.AllowedOrigins) == 0 {
		return true
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		// not a browser
		return true
	}

	return slices.Contains(that.options.AllowedOrigins, origin)
}

// upgradeToWebSocket - upgrades the connection to WebSocket and serves it until it closes.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		// the upgrader has already answered the request
		log.Warn("failed to upgrade connection", "error", err, "origin", req.Header.Get("Origin"))
		return
	}

	conn := newConnection(uuid.NewString(), ws, that.logger)

	that.connectionsMutex.Lock()
	that.connections[conn.id] = conn
	that.connectionsMutex.Unlock()

	log.Info("WebSocket connection established", "participant", conn.id)

	go conn.writePump()

	that.handleMessages(ctx, conn)
	that.handleDisconnect(ctx, conn)
}

// handleMessages - processes messages from the client until the socket fails.
func (that *Server) handleMessages(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "handleMessages", "participant", conn.id)

	conn.ws.SetReadLimit(readLimit)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("error reading message", "error", err)
			}

			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			that.sendErrorResponse(conn, "", fmt.Errorf("malformed message: %w", apperror.ErrBadRequest))

			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Debug("unknown action", "action", message.Action)
			that.sendErrorResponse(conn, message.Action, fmt.Errorf("unknown action %q: %w", message.Action, apperror.ErrBadRequest))

			continue
		}

		observability.RecordMessage(message.Action)

		if err = handler(ctx, &message, conn); err != nil {
			if !apperror.IsRejection(err) {
				log.Error("error processing message", "action", message.Action, "error", err)
			}

			that.sendErrorResponse(conn, message.Action, err)
		}
	}
}

// handleDisconnect tears down the participant's rooms and tells whoever sat opposite.
func (that *Server) handleDisconnect(ctx context.Context, conn *connection) {
	log := that.logger.With("method", "handleDisconnect", "participant", conn.id)

	that.connectionsMutex.Lock()
	delete(that.connections, conn.id)
	that.connectionsMutex.Unlock()

	conn.close()

	for _, room := range that.store.RemoveParticipant(ctx, conn.id) {
		other := room.Other(conn.id)
		if other == "" {
			continue
		}

		that.sendTo(other, actionOpponentDisconnected, ResponsePayload{Code: room.Code})
		log.Info("opponent notified", "code", room.Code, "opponent", other)
	}

	observability.SetSessionsActive(that.store.Count())

	log.Info("WebSocket connection closed")
}

func (that *Server) closeAll() {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	for _, conn := range that.connections {
		conn.close()
	}
}

func (that *Server) connection(participantID string) (*connection, bool) {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	conn, ok := that.connections[participantID]

	return conn, ok
}
