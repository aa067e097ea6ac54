// Package protocol defines the JSON messages exchanged with clients over the websocket.
//
// Every frame is a JSON object carrying the protocol version "v" and a message "type";
// the remaining fields depend on the type.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// Version is the only protocol version this server speaks.
const Version = 1

// Kind names a message type.
type Kind string

// Client requests.
const (
	KindConnect     Kind = "CONNECT"
	KindUpdateNick  Kind = "UPDATE_NICK"
	KindGetGameList Kind = "GET_GAME_LIST"
	KindNewGame     Kind = "NEW_GAME"
	KindJoinGame    Kind = "JOIN_GAME"
	KindPlayCards   Kind = "PLAY_CARDS"
	KindPassTurn    Kind = "PASS_TURN"
	KindGiveCards   Kind = "GIVE_CARDS"
	KindStartGame   Kind = "START_GAME"
	KindStopGame    Kind = "STOP_GAME"
	KindCancelGame  Kind = "CANCEL_GAME"
	KindLeaveGame   Kind = "LEAVE_GAME"
	KindHeartbeat   Kind = "HEARTBEAT"
	KindDisconnect  Kind = "DISCONNECT"
)

// Server responses. HEARTBEAT is echoed with the same kind.
const (
	KindIdentity  Kind = "IDENTITY"
	KindGameList  Kind = "GAME_LIST"
	KindGameState Kind = "GAME_STATE"
	KindOK        Kind = "OK"
	KindError     Kind = "ERROR"
)

// ErrorKind classifies an ERROR response.
type ErrorKind string

const (
	ErrPasswordError      ErrorKind = "PASSWORD_ERROR"
	ErrGameFull           ErrorKind = "GAME_FULL"
	ErrGameNotFound       ErrorKind = "GAME_NOT_FOUND"
	ErrNotOwner           ErrorKind = "NOT_OWNER"
	ErrCancelledGame      ErrorKind = "CANCELLED_GAME"
	ErrGameStopped        ErrorKind = "GAME_STOPPED"
	ErrNickTaken          ErrorKind = "NICK_TAKEN"
	ErrInvalidNick        ErrorKind = "INVALID_NICK"
	ErrNotConnected       ErrorKind = "NOT_CONNECTED"
	ErrInvalidRequest     ErrorKind = "INVALID_REQUEST"
	ErrSessionError       ErrorKind = "SESSION_ERROR"
	ErrIllegalMove        ErrorKind = "ILLEGAL_MOVE"
	ErrNotYourTurn        ErrorKind = "NOT_YOUR_TURN"
	ErrInvalidState       ErrorKind = "INVALID_STATE"
	ErrUnsupportedVersion ErrorKind = "UNSUPPORTED_VERSION"
)

// ErrMalformed is returned by Decode for frames that are not a valid request.
var ErrMalformed = errors.New("malformed request")

// Request is a client message. Only the fields relevant to Type are set.
type Request struct {
	V        int                    `json:"v"`
	Type     Kind                   `json:"type"`
	Token    string                 `json:"token,omitempty"`
	Nick     string                 `json:"nick,omitempty"`
	Name     string                 `json:"name,omitempty"`
	Password string                 `json:"password,omitempty"`
	GameID   uuid.UUID              `json:"gameId,omitempty"`
	Cards    []models.Card          `json:"cards,omitempty"`
	Time     int64                  `json:"time,omitempty"`
	Rules    map[string]interface{} `json:"rules,omitempty"`
}

// Response is a server message. Only the fields relevant to Type are set.
type Response struct {
	V       int                  `json:"v"`
	Type    Kind                 `json:"type"`
	Token   string               `json:"token,omitempty"`
	Nick    string               `json:"nick,omitempty"`
	Games   []models.GameListing `json:"games,omitempty"`
	State   *game.GameState      `json:"state,omitempty"`
	Time    int64                `json:"time,omitempty"`
	Kind    ErrorKind            `json:"kind,omitempty"`
	Message string               `json:"message,omitempty"`
}

// MarshalJSON always writes the games key of a GAME_LIST, so an empty lobby is "games":[].
func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	if r.Type != KindGameList {
		return json.Marshal(plain(r))
	}
	games := r.Games
	if games == nil {
		games = []models.GameListing{}
	}
	return json.Marshal(struct {
		plain
		Games []models.GameListing `json:"games"`
	}{plain(r), games})
}

// Decode parses a request frame and checks its version.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Type == "" {
		return Request{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return req, nil
}

// Identity answers CONNECT and UPDATE_NICK.
func Identity(token, nick string) Response {
	return Response{V: Version, Type: KindIdentity, Token: token, Nick: nick}
}

// GameList answers GET_GAME_LIST.
func GameList(games []models.GameListing) Response {
	return Response{V: Version, Type: KindGameList, Games: games}
}

// GameState carries one player's view of the game.
func GameState(st game.GameState) Response {
	return Response{V: Version, Type: KindGameState, State: &st}
}

// Heartbeat echoes a time in milliseconds.
func Heartbeat(millis int64) Response {
	return Response{V: Version, Type: KindHeartbeat, Time: millis}
}

// OK acknowledges a request that has no other answer.
func OK() Response {
	return Response{V: Version, Type: KindOK}
}

// Error builds an ERROR response.
func Error(kind ErrorKind, message string) Response {
	return Response{V: Version, Type: KindError, Kind: kind, Message: message}
}

// ErrorFor builds the ERROR response for a game error.
func ErrorFor(err error) Response {
	return Error(KindFor(err), err.Error())
}

// KindFor classifies a game error.
func KindFor(err error) ErrorKind {
	switch {
	case errors.Is(err, game.ErrGameFull):
		return ErrGameFull
	case errors.Is(err, game.ErrNotYourTurn):
		return ErrNotYourTurn
	case errors.Is(err, game.ErrIllegalPlay),
		errors.Is(err, game.ErrCardNotInHand),
		errors.Is(err, game.ErrCannotPass),
		errors.Is(err, game.ErrWrongTradeCount):
		return ErrIllegalMove
	case errors.Is(err, game.ErrNotInProgress),
		errors.Is(err, game.ErrNoTradePending),
		errors.Is(err, game.ErrGameStarted),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, game.ErrAlreadySeated):
		return ErrInvalidState
	case errors.Is(err, game.ErrPlayerNotFound):
		return ErrSessionError
	default:
		return ErrInvalidRequest
	}
}
