// internal/middleware/logging.go
package middleware

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// statusRecorder remembers the status code written by the wrapped handler. It stays
// hijackable so websocket upgrades pass through.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T does not support hijacking", r.ResponseWriter)
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// LogMiddleware logs the method, path, status and duration of each request.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs an accepted websocket upgrade.
func LogWebSocketConnect(logger *logrus.Logger, r *http.Request, subprotocol string) {
	logger.WithFields(logrus.Fields{
		"remote":      r.RemoteAddr,
		"path":        r.URL.Path,
		"subprotocol": subprotocol,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs the end of a websocket connection. A client closing normally
// or hanging up is logged at info; anything else is a warning carrying the error.
func LogWebSocketDisconnect(logger *logrus.Logger, r *http.Request, connected time.Time, err error) {
	entry := logger.WithFields(logrus.Fields{
		"remote":   r.RemoteAddr,
		"path":     r.URL.Path,
		"duration": time.Since(connected),
	})
	if CleanClose(err) {
		entry.Info("WebSocket disconnected")
		return
	}
	entry.WithError(err).Warn("WebSocket disconnected")
}

// CleanClose reports whether err is how a well-behaved client ends a session.
func CleanClose(err error) bool {
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
