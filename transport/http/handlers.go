package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropwire/dropwire/transport/wire"
)

// WireHandlers binds the wire-protocol endpoints to HTTP.
type WireHandlers struct {
	dispatchers map[string]*wire.Dispatcher
	log         *slog.Logger
}

// NewWireHandlers creates handlers over the endpoint dispatchers.
func NewWireHandlers(dispatchers map[string]*wire.Dispatcher, log *slog.Logger) *WireHandlers {
	if log == nil {
		log = slog.Default()
	}
	return &WireHandlers{dispatchers: dispatchers, log: log}
}

// Dispatch handles one wire-protocol exchange: the request body is the
// message envelope, the connection starts in root state, and the one
// terminal message becomes the response.
func (h *WireHandlers) Dispatch(c *gin.Context) {
	dispatcher, ok := h.dispatchers[c.Param("endpoint")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown endpoint"})
		return
	}

	var env wire.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid envelope"})
		return
	}

	conn := newOneshotConn(c.GetString(clientKeyContext))
	dispatcher.Dispatch(c.Request.Context(), conn, wire.StateRoot, env)

	msg, sent := conn.message()
	if !sent {
		// Every completed cycle ends with exactly one terminal message; a
		// missing one means the connection died mid-task.
		h.log.Error("wire exchange produced no terminal message", "conn", conn.ID())
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// SelfIdentDocument serves the unauthenticated well-known self-identity
// document, CORS-open so any client origin can bootstrap against this
// server.
func SelfIdentDocument(selfIdentBlob string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.JSON(http.StatusOK, gin.H{"selfIdent": selfIdentBlob})
	}
}
