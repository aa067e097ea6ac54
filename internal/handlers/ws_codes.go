// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes.
const (
	BadSubprotocolError = 3000 // Client connected without the daifugo subprotocol.
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "daifugo"
