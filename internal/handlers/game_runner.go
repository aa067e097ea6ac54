// internal/handlers/game_runner.go
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/protocol"
	"github.com/sirupsen/logrus"
)

// GameRunner drives one session's connection while it is seated in a game.
type GameRunner struct {
	session *UserSession
	conn    MessageConn
	game    *game.Game
	log     *logrus.Entry
}

// Run answers the NEW_GAME/JOIN_GAME request with the game state, then serves game
// requests until the session leaves (OutcomePlayerLeft) or the connection is lost
// (OutcomeDisconnected, with the transport error).
func (r *GameRunner) Run(ctx context.Context) (game.Outcome, error) {
	r.log.Info("entered game")
	if err := r.sendState(ctx); err != nil {
		r.abandon()
		return game.OutcomeDisconnected, err
	}

	for {
		req, err := r.conn.ReadRequest(ctx)
		if err != nil {
			r.log.WithError(err).Info("connection lost in game")
			r.abandon()
			return game.OutcomeDisconnected, err
		}
		if req.V != protocol.Version {
			if err := r.conn.WriteResponse(ctx, protocol.Error(protocol.ErrUnsupportedVersion, "protocol version must be 1")); err != nil {
				r.abandon()
				return game.OutcomeDisconnected, err
			}
			continue
		}

		out, err := r.handle(ctx, req)
		if err != nil {
			r.log.WithError(err).Info("failed to write to client")
			r.abandon()
			return game.OutcomeDisconnected, err
		}
		switch out {
		case game.OutcomePlayerLeft:
			r.log.Info("left game")
			return out, nil
		case game.OutcomeDisconnected:
			return out, nil
		}
	}
}

// handle serves one request. The returned error is a write failure; game errors are sent to
// the client as ERROR responses.
func (r *GameRunner) handle(ctx context.Context, req protocol.Request) (game.Outcome, error) {
	id := r.session.ID
	r.log.WithField("type", req.Type).Debug("game request")

	switch req.Type {
	case protocol.KindPlayCards:
		out, err := r.game.PlayCards(id, req.Cards)
		if err != nil {
			return r.fail(ctx, err)
		}
		if out == game.OutcomeRoundOver {
			r.log.Info("round over")
		}
		return game.OutcomeContinue, r.sendState(ctx)

	case protocol.KindPassTurn:
		out, err := r.game.Pass(id)
		if err != nil {
			return r.fail(ctx, err)
		}
		if out == game.OutcomeRoundOver {
			return game.OutcomeContinue, r.write(ctx, protocol.OK())
		}
		return game.OutcomeContinue, r.sendState(ctx)

	case protocol.KindGiveCards:
		if err := r.game.GiveCards(id, req.Cards); err != nil {
			return r.fail(ctx, err)
		}
		return game.OutcomeContinue, r.write(ctx, protocol.OK())

	case protocol.KindStartGame, protocol.KindStopGame, protocol.KindCancelGame:
		return r.ownerAction(ctx, req.Type)

	case protocol.KindLeaveGame:
		r.leave()
		return game.OutcomePlayerLeft, r.write(ctx, protocol.OK())

	case protocol.KindHeartbeat:
		return r.heartbeat(ctx, req.Time)

	case protocol.KindDisconnect:
		r.abandon()
		// The client is going away; a failed goodbye changes nothing.
		_ = r.write(ctx, protocol.OK())
		return game.OutcomeDisconnected, nil

	default:
		return game.OutcomeContinue, r.write(ctx, protocol.Error(protocol.ErrInvalidRequest, "not valid inside a game: "+string(req.Type)))
	}
}

// ownerAction runs START_GAME, STOP_GAME and CANCEL_GAME, which only the owner may send.
func (r *GameRunner) ownerAction(ctx context.Context, kind protocol.Kind) (game.Outcome, error) {
	if r.userNotOwner() {
		return game.OutcomeContinue, r.write(ctx, protocol.Error(protocol.ErrNotOwner, "only the game owner may do that"))
	}

	var err error
	switch kind {
	case protocol.KindStartGame:
		err = r.game.Start()
	case protocol.KindStopGame:
		err = r.game.Stop()
	case protocol.KindCancelGame:
		err = r.game.CancelGame()
	}
	if err != nil {
		return r.fail(ctx, err)
	}
	r.log.WithField("type", kind).Info("owner action")

	if kind == protocol.KindCancelGame {
		r.leave()
		return game.OutcomePlayerLeft, r.write(ctx, protocol.OK())
	}
	return game.OutcomeContinue, r.write(ctx, protocol.OK())
}

func (r *GameRunner) heartbeat(ctx context.Context, sent int64) (game.Outcome, error) {
	res, err := r.game.Heartbeat(r.session.ID, sent, time.Now())
	if err != nil {
		return r.fail(ctx, err)
	}

	switch {
	case res.Evict:
		r.leave()
		kind, msg := protocol.ErrCancelledGame, "the game was cancelled"
		if res.Reason == game.StateStopped {
			kind, msg = protocol.ErrGameStopped, "the game was stopped"
		}
		return game.OutcomePlayerLeft, r.write(ctx, protocol.Error(kind, msg))
	case res.State != nil:
		return game.OutcomeContinue, r.write(ctx, protocol.GameState(*res.State))
	default:
		return game.OutcomeContinue, r.write(ctx, protocol.Heartbeat(res.ServerTime))
	}
}

// fail reports a game error to the client. A session the game no longer knows returns to
// the lobby.
func (r *GameRunner) fail(ctx context.Context, err error) (game.Outcome, error) {
	out := game.OutcomeContinue
	if errors.Is(err, game.ErrPlayerNotFound) {
		r.log.Warn("session no longer seated in game")
		out = game.OutcomePlayerLeft
	}
	return out, r.write(ctx, protocol.ErrorFor(err))
}

func (r *GameRunner) userNotOwner() bool {
	return !r.game.IsOwner(r.session.ID)
}

func (r *GameRunner) sendState(ctx context.Context) error {
	st, err := r.game.StateFor(r.session.ID)
	if err != nil {
		return r.write(ctx, protocol.ErrorFor(err))
	}
	return r.write(ctx, protocol.GameState(st))
}

func (r *GameRunner) write(ctx context.Context, resp protocol.Response) error {
	return r.conn.WriteResponse(ctx, resp)
}

func (r *GameRunner) leave() {
	if _, err := r.game.LeaveGame(r.session.ID); err != nil && !errors.Is(err, game.ErrPlayerNotFound) {
		r.log.WithError(err).Warn("failed to leave game")
	}
}

// abandon handles an abrupt disconnect: the owner takes the game down with them, anyone
// else just leaves.
func (r *GameRunner) abandon() {
	r.game.MarkConnectionLost(r.session.ID)
	if !r.userNotOwner() {
		if err := r.game.CancelGame(); err != nil && !errors.Is(err, game.ErrGameOver) {
			r.log.WithError(err).Warn("failed to cancel game")
		}
	}
	r.leave()
}
