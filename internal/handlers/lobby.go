// internal/handlers/lobby.go
package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/protocol"
	"github.com/sirupsen/logrus"
)

// ServeConn runs the lobby loop for one connection until the client disconnects or the
// transport fails. While the session is seated in a game, a GameRunner takes over the
// connection. The returned error is the transport error that ended the loop, nil on a
// clean DISCONNECT.
func (gs *GameServer) ServeConn(ctx context.Context, conn MessageConn) error {
	var sess *UserSession
	defer func() {
		if sess != nil {
			gs.Sessions.Remove(sess.ID)
		}
	}()
	log := logrus.NewEntry(gs.Logger)

	for {
		req, err := conn.ReadRequest(ctx)
		if err != nil {
			log.WithError(err).Debug("lobby read ended")
			return err
		}
		if req.V != protocol.Version {
			if err := conn.WriteResponse(ctx, protocol.Error(protocol.ErrUnsupportedVersion, "protocol version must be 1")); err != nil {
				return err
			}
			continue
		}
		if sess == nil && req.Type != protocol.KindConnect && req.Type != protocol.KindDisconnect {
			if err := conn.WriteResponse(ctx, protocol.Error(protocol.ErrNotConnected, "send CONNECT first")); err != nil {
				return err
			}
			continue
		}

		var (
			resp   protocol.Response
			joined *game.Game
		)
		switch req.Type {
		case protocol.KindConnect:
			if sess == nil {
				sess, err = gs.connect(req.Token)
				if err != nil {
					log.WithError(err).Error("failed to create session")
					resp = protocol.Error(protocol.ErrSessionError, "could not create session")
					break
				}
				log = log.WithFields(logrus.Fields{"session": sess.ID})
				log.WithField("nick", sess.Nick).Info("session connected")
			}
			resp = protocol.Identity(sess.Token, sess.Nick)

		case protocol.KindUpdateNick:
			resp = gs.updateNick(sess, req.Nick)

		case protocol.KindGetGameList:
			resp = protocol.GameList(gs.GameStore.ListGames())

		case protocol.KindNewGame:
			joined, resp = gs.newGame(sess, req)

		case protocol.KindJoinGame:
			joined, resp = gs.joinGame(sess, req)

		case protocol.KindHeartbeat:
			resp = protocol.Heartbeat(req.Time)

		case protocol.KindDisconnect:
			log.Info("session disconnected")
			return conn.WriteResponse(ctx, protocol.OK())

		default:
			resp = protocol.Error(protocol.ErrInvalidRequest, "not valid outside a game: "+string(req.Type))
		}

		if joined == nil {
			if err := conn.WriteResponse(ctx, resp); err != nil {
				return err
			}
			continue
		}

		runner := &GameRunner{
			session: sess,
			conn:    conn,
			game:    joined,
			log:     log.WithFields(logrus.Fields{"nick": sess.Nick, "game": joined.ID}),
		}
		out, err := runner.Run(ctx)
		if out == game.OutcomeDisconnected {
			return err
		}
	}
}

// connect creates a session. A valid token from an earlier connection keeps its session
// ID, unless that session is still connected.
func (gs *GameServer) connect(token string) (*UserSession, error) {
	id := uuid.New()
	if token != "" {
		if sub, err := gs.Tokens.AuthenticateJWT(token); err == nil {
			if prev, err := uuid.Parse(sub); err == nil && !gs.Sessions.Active(prev) {
				id = prev
			}
		}
	}
	token, err := gs.Tokens.CreateJWT(id.String())
	if err != nil {
		return nil, err
	}

	sess := &UserSession{ID: id, Token: token}
	for attempt := 0; attempt < 5; attempt++ {
		sess.Nick = "Player-" + uuid.NewString()[:4]
		if err = gs.Sessions.Add(sess); !errors.Is(err, errNickTaken) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (gs *GameServer) updateNick(sess *UserSession, nick string) protocol.Response {
	switch err := gs.Sessions.Rename(sess, nick); {
	case errors.Is(err, errInvalidNick):
		return protocol.Error(protocol.ErrInvalidNick, err.Error())
	case errors.Is(err, errNickTaken):
		return protocol.Error(protocol.ErrNickTaken, err.Error())
	}
	return protocol.Identity(sess.Token, sess.Nick)
}

// newGame creates a game owned by sess. On success the returned game is non-nil.
func (gs *GameServer) newGame(sess *UserSession, req protocol.Request) (*game.Game, protocol.Response) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, protocol.Error(protocol.ErrInvalidRequest, "game name is required")
	}
	rules := gs.Rules
	if req.Rules != nil {
		if err := rules.Update(req.Rules); err != nil {
			return nil, protocol.Error(protocol.ErrInvalidRequest, err.Error())
		}
	}

	g, err := game.NewGame(name, sess.ID, sess.Nick, req.Password, rules)
	if err != nil {
		return nil, protocol.ErrorFor(err)
	}
	g.ActionLogFn = gs.actionLogFn()
	gs.GameStore.AddGame(g)
	gs.Logger.WithFields(logrus.Fields{"game": g.ID, "owner": sess.Nick, "title": name}).Info("game created")
	return g, protocol.Response{}
}

// joinGame seats sess in the requested game. On success the returned game is non-nil.
func (gs *GameServer) joinGame(sess *UserSession, req protocol.Request) (*game.Game, protocol.Response) {
	g, ok := gs.GameStore.GetGame(req.GameID)
	if !ok || g.State().Terminal() {
		return nil, protocol.Error(protocol.ErrGameNotFound, "no such game")
	}
	ok, err := g.CheckPassword(req.Password)
	if err != nil {
		gs.Logger.WithError(err).WithField("game", g.ID).Error("failed to check game password")
		return nil, protocol.Error(protocol.ErrSessionError, "could not check password")
	}
	if !ok {
		return nil, protocol.Error(protocol.ErrPasswordError, "wrong password")
	}
	if err := g.AddPlayer(sess.ID, sess.Nick); err != nil {
		return nil, protocol.ErrorFor(err)
	}
	return g, protocol.Response{}
}
