// internal/handlers/conn.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/daifugo/internal/middleware"
	"github.com/jason-s-yu/daifugo/internal/protocol"
)

// MessageConn is a client connection speaking the protocol. Any error from either method
// means the connection is unusable.
type MessageConn interface {
	ReadRequest(ctx context.Context) (protocol.Request, error)
	WriteResponse(ctx context.Context, resp protocol.Response) error
}

// wsConn carries protocol messages as JSON text frames.
type wsConn struct {
	c            *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// ReadRequest waits up to the read timeout for the next frame.
func (w *wsConn) ReadRequest(ctx context.Context) (protocol.Request, error) {
	if w.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.readTimeout)
		defer cancel()
	}
	msgType, data, err := w.c.Read(ctx)
	if err != nil {
		return protocol.Request{}, err
	}
	if msgType != websocket.MessageText {
		return protocol.Request{}, fmt.Errorf("%w: binary frame", protocol.ErrMalformed)
	}
	return protocol.Decode(data)
}

// WriteResponse marshals resp and writes it with the write timeout.
func (w *wsConn) WriteResponse(ctx context.Context, resp protocol.Response) error {
	msgBytes, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()
	return w.c.Write(writeCtx, websocket.MessageText, msgBytes)
}

// WSHandler upgrades /ws requests and serves the connection until it ends.
func WSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			gs.Logger.WithError(err).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the daifugo subprotocol")
			return
		}
		connected := time.Now()
		middleware.LogWebSocketConnect(gs.Logger, r, c.Subprotocol())

		conn := &wsConn{c: c, readTimeout: gs.ReadTimeout, writeTimeout: gs.WriteTimeout}
		err = gs.ServeConn(r.Context(), conn)

		middleware.LogWebSocketDisconnect(gs.Logger, r, connected, err)
		c.Close(websocket.StatusNormalClosure, "bye")
	}
}
