package handlers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory MessageConn. Closing in simulates the client going away.
type fakeConn struct {
	in  chan protocol.Request
	out chan protocol.Response
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:  make(chan protocol.Request, 16),
		out: make(chan protocol.Response, 64),
	}
}

func (f *fakeConn) ReadRequest(ctx context.Context) (protocol.Request, error) {
	select {
	case req, ok := <-f.in:
		if !ok {
			return protocol.Request{}, io.EOF
		}
		return req, nil
	case <-ctx.Done():
		return protocol.Request{}, ctx.Err()
	}
}

func (f *fakeConn) WriteResponse(ctx context.Context, resp protocol.Response) error {
	f.out <- resp
	return nil
}

// testClient drives one ServeConn worker.
type testClient struct {
	t    *testing.T
	conn *fakeConn
	done chan error
}

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tokens, err := auth.NewTokenIssuer(0)
	require.NoError(t, err)
	return NewGameServer(logger, tokens, game.DefaultRules())
}

func startClient(t *testing.T, gs *GameServer) *testClient {
	t.Helper()
	c := &testClient{t: t, conn: newFakeConn(), done: make(chan error, 1)}
	go func() {
		c.done <- gs.ServeConn(context.Background(), c.conn)
	}()
	return c
}

func (c *testClient) send(req protocol.Request) {
	req.V = protocol.Version
	c.conn.in <- req
}

func (c *testClient) recv() protocol.Response {
	c.t.Helper()
	select {
	case resp := <-c.conn.out:
		return resp
	case <-time.After(2 * time.Second):
		c.t.Fatal("timed out waiting for response")
		return protocol.Response{}
	}
}

// call sends req and returns the response.
func (c *testClient) call(req protocol.Request) protocol.Response {
	c.t.Helper()
	c.send(req)
	return c.recv()
}

// connect opens a session and returns its identity.
func (c *testClient) connect() protocol.Response {
	c.t.Helper()
	resp := c.call(protocol.Request{Type: protocol.KindConnect})
	require.Equal(c.t, protocol.KindIdentity, resp.Type)
	return resp
}

// hangUp drops the connection and waits for the worker to stop.
func (c *testClient) hangUp() {
	c.t.Helper()
	close(c.conn.in)
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.t.Fatal("worker did not stop")
	}
}
