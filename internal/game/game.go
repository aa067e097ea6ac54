// internal/game/game.go
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// State is the lifecycle phase of a game.
type State string

const (
	StateLobby      State = "LOBBY"
	StateInProgress State = "IN_PROGRESS"
	StateTrading    State = "TRADING"
	StateFinished   State = "FINISHED"
	StateCancelled  State = "CANCELLED"
	StateStopped    State = "STOPPED"
)

// Terminal reports whether no further play is possible.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateStopped
}

// Game holds the entire state for a single game instance in memory.
// Exported methods acquire Mu themselves; unexported helpers assume it is held.
type Game struct {
	ID      uuid.UUID
	Title   string
	OwnerID uuid.UUID
	Rules   Rules

	Mu sync.Mutex

	ownerNick    string
	passwordHash string

	state   State
	players []*PlayerObject

	// table holds the play currently to beat; its length is the trick size.
	table      []models.Card
	turn       uuid.UUID
	lastPlayer uuid.UUID

	round      int
	outCounter int
	roundSize  int
	fewPlayers bool

	actionIndex int
	shuffle     func([]models.Card)

	// ActionLogFn receives every recorded action. It is called with Mu held and must not
	// block. If nil, actions are not recorded.
	ActionLogFn func(rec cache.GameActionRecord)

	// OnEmpty is invoked, without Mu held, once the last player has left.
	OnEmpty func(gameID uuid.UUID)
}

// NewGame creates a game in the LOBBY state with its owner seated.
// An empty password leaves the game open.
func NewGame(title string, ownerID uuid.UUID, ownerNick, password string, rules Rules) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate game id: %w", err)
	}

	g := &Game{
		ID:        id,
		Title:     title,
		OwnerID:   ownerID,
		Rules:     rules,
		ownerNick: ownerNick,
		state:     StateLobby,
		players:   []*PlayerObject{newPlayerObject(ownerID, ownerNick)},
		shuffle:   shuffleDeck,
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash game password: %w", err)
		}
		g.passwordHash = hash
	}
	return g, nil
}

// SetShuffler replaces the deck shuffler. A nil shuffler deals the deck unshuffled.
func (g *Game) SetShuffler(fn func([]models.Card)) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if fn == nil {
		fn = func([]models.Card) {}
	}
	g.shuffle = fn
}

// HasPassword reports whether joining requires a password.
func (g *Game) HasPassword() bool {
	return g.passwordHash != ""
}

// CheckPassword reports whether password opens the game. Open games accept anything.
func (g *Game) CheckPassword(password string) (bool, error) {
	if g.passwordHash == "" {
		return true, nil
	}
	return auth.VerifyPassword(password, g.passwordHash)
}

// IsOwner reports whether id created the game.
func (g *Game) IsOwner(id uuid.UUID) bool {
	return g.OwnerID == id
}

// State returns the current lifecycle phase.
func (g *Game) State() State {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.state
}

// PlayerCount returns the number of seated players.
func (g *Game) PlayerCount() int {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return len(g.players)
}

// Listing summarizes the game for the lobby.
func (g *Game) Listing() models.GameListing {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return models.GameListing{
		ID:              g.ID,
		Title:           g.Title,
		Owner:           g.ownerNick,
		NumberOfPlayers: len(g.players),
		MaxPlayers:      g.Rules.MaxPlayers,
		HasPassword:     g.passwordHash != "",
		HasStarted:      g.state != StateLobby,
	}
}

// AddPlayer seats a new player. Players may only join between rounds.
func (g *Game) AddPlayer(id uuid.UUID, nick string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch {
	case g.state.Terminal():
		return ErrGameOver
	case g.state != StateLobby && g.state != StateFinished:
		return ErrGameStarted
	case g.playerByID(id) != nil:
		return ErrAlreadySeated
	case len(g.players) >= g.Rules.MaxPlayers:
		return ErrGameFull
	}

	g.players = append(g.players, newPlayerObject(id, nick))
	g.logAction(id, "player_join", map[string]interface{}{"nick": nick})
	g.markAllUpdated()
	return nil
}

// Start deals a new round. It is valid from LOBBY and between rounds.
func (g *Game) Start() error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch {
	case g.state.Terminal():
		return ErrGameOver
	case g.state != StateLobby && g.state != StateFinished:
		return ErrGameStarted
	case len(g.players) < g.Rules.MinPlayers:
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, g.Rules.MinPlayers, len(g.players))
	}

	deck := NewDeck()
	g.shuffle(deck)
	hands := Deal(deck, len(g.players))
	for i, p := range g.players {
		p.setHand(hands[i])
	}
	g.round++
	g.table = nil
	g.turn = uuid.Nil
	g.lastPlayer = uuid.Nil
	g.logAction(uuid.Nil, "round_deal", map[string]interface{}{
		"round":   g.round,
		"players": len(g.players),
	})

	// Obligations survive only while both sides of the trade are still seated.
	for _, p := range g.players {
		if p.Data.MustTrade && g.playerByRole(TradePartner(p.Data.Role)) == nil {
			p.Data.DoneTrading()
		}
	}

	if g.tradesPending() {
		g.state = StateTrading
		g.logAction(uuid.Nil, "trading_start", map[string]interface{}{"round": g.round})
	} else {
		g.beginPlay()
	}
	g.markAllUpdated()
	return nil
}

// beginPlay resets the round flags and hands the lead to the first player of the round.
func (g *Game) beginPlay() {
	leader := g.firstLeader()
	for _, p := range g.players {
		p.Data.Reset(g.Rules.RetainRoleHistory)
		p.Data.DoneTrading()
	}
	g.table = nil
	g.lastPlayer = uuid.Nil
	g.outCounter = 0
	g.roundSize = len(g.players)
	g.fewPlayers = g.roundSize <= g.Rules.FewPlayersMax
	g.state = StateInProgress
	g.turn = leader.ID
	g.logAction(leader.ID, "round_start", map[string]interface{}{"round": g.round})
}

// firstLeader picks who opens the round: the previous bum, else whoever holds the three
// of clubs, else the first seat.
func (g *Game) firstLeader() *PlayerObject {
	if g.round > 1 {
		if bum := g.playerByRole(models.RoleBum); bum != nil {
			return bum
		}
	}
	threeOfClubs := models.Card{Rank: models.RankThree, Suit: models.Clubs}
	for _, p := range g.players {
		if ContainsAll(p.Hand, []models.Card{threeOfClubs}) {
			return p
		}
	}
	return g.players[0]
}

// PlayCards plays cards from id's hand onto the table.
func (g *Game) PlayCards(id uuid.UUID, cards []models.Card) (Outcome, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.state != StateInProgress {
		return OutcomeContinue, ErrNotInProgress
	}
	idx := g.indexOf(id)
	if idx < 0 {
		return OutcomeContinue, ErrPlayerNotFound
	}
	p := g.players[idx]
	if g.turn != id {
		return OutcomeContinue, ErrNotYourTurn
	}
	if !ContainsAll(p.Hand, cards) {
		return OutcomeContinue, ErrCardNotInHand
	}
	if err := CheckPlay(g.table, cards); err != nil {
		return OutcomeContinue, err
	}

	if len(g.table) == 0 {
		for _, o := range g.players {
			o.Data.Passed = false
		}
	}
	p.setHand(RemoveCards(p.Hand, cards))
	g.table = append([]models.Card(nil), cards...)
	g.lastPlayer = id
	g.logAction(id, "play_cards", map[string]interface{}{"cards": cards})
	defer g.markAllUpdated()

	if len(p.Hand) == 0 {
		g.finishPlayer(p)
	}
	if g.activeCount() <= 1 {
		g.completeRound()
		return OutcomeRoundOver, nil
	}

	if IsBurn(cards) {
		g.clearTrick()
		g.turn = g.leaderAfter(idx, p).ID
		g.logAction(g.turn, "trick_burned", nil)
		return OutcomeTrickCleared, nil
	}
	if next := g.seek(idx+1, func(o *PlayerObject) bool { return o.ID != id && o.contending() }); next != nil {
		g.turn = next.ID
		return OutcomeContinue, nil
	}

	// Nobody is left to answer the play.
	g.clearTrick()
	g.turn = g.leaderAfter(idx, p).ID
	return OutcomeTrickCleared, nil
}

// Pass gives up id's turn on the current trick. A pass never ends a round; a pass that
// arrives after the round ended is reported as OutcomeRoundOver without error.
func (g *Game) Pass(id uuid.UUID) (Outcome, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	switch g.state {
	case StateFinished, StateTrading:
		return OutcomeRoundOver, nil
	case StateInProgress:
	default:
		return OutcomeContinue, ErrNotInProgress
	}
	idx := g.indexOf(id)
	if idx < 0 {
		return OutcomeContinue, ErrPlayerNotFound
	}
	if g.turn != id {
		return OutcomeContinue, ErrNotYourTurn
	}
	if len(g.table) == 0 {
		return OutcomeContinue, ErrCannotPass
	}

	g.players[idx].Data.Passed = true
	g.logAction(id, "pass", nil)
	defer g.markAllUpdated()

	return g.settleTrick(idx), nil
}

// settleTrick moves the turn on after the player at seat idx stopped contending.
func (g *Game) settleTrick(idx int) Outcome {
	if len(g.table) == 0 {
		if leader := g.seek(idx, (*PlayerObject).active); leader != nil {
			g.turn = leader.ID
		}
		return OutcomeContinue
	}

	var contenders []*PlayerObject
	for _, o := range g.players {
		if o.contending() {
			contenders = append(contenders, o)
		}
	}

	switch len(contenders) {
	case 0:
		from := idx
		if li := g.indexOf(g.lastPlayer); li >= 0 {
			from = li + 1
		}
		g.clearTrick()
		if leader := g.seek(from, (*PlayerObject).active); leader != nil {
			g.turn = leader.ID
		}
		return OutcomeTrickCleared
	case 1:
		// The survivor leads; the others stay passed until the new trick opens.
		g.table = nil
		g.turn = contenders[0].ID
		g.logAction(g.turn, "trick_won", nil)
		return OutcomeTrickCleared
	default:
		if next := g.seek(idx, (*PlayerObject).contending); next != nil {
			g.turn = next.ID
		}
		return OutcomeContinue
	}
}

// GiveCards hands cards from id to its trade partner.
func (g *Game) GiveCards(id uuid.UUID, cards []models.Card) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.state != StateTrading {
		return ErrNoTradePending
	}
	p := g.playerByID(id)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.Data.MustTrade {
		return ErrNoTradePending
	}
	if want := TradeCount(p.Data.Role); len(cards) != want {
		return fmt.Errorf("%w: %s gives %d card(s)", ErrWrongTradeCount, p.Data.Role, want)
	}
	if !ContainsAll(p.Hand, cards) {
		return ErrCardNotInHand
	}
	partner := g.playerByRole(TradePartner(p.Data.Role))
	if partner == nil {
		p.Data.DoneTrading()
		return ErrNoTradePending
	}

	p.setHand(RemoveCards(p.Hand, cards))
	received := append(append([]models.Card{}, partner.Hand...), cards...)
	SortHand(received)
	partner.setHand(received)
	p.Data.DoneTrading()
	g.logAction(id, "give_cards", map[string]interface{}{
		"to":    partner.ID,
		"cards": cards,
	})

	if !g.tradesPending() {
		g.beginPlay()
	}
	g.markAllUpdated()
	return nil
}

// Stop ends the game for good. Players learn of it on their next heartbeat.
func (g *Game) Stop() error {
	return g.terminate(StateStopped, "game_stop")
}

// CancelGame aborts the game. Players are evicted on their next heartbeat.
func (g *Game) CancelGame() error {
	return g.terminate(StateCancelled, "game_cancel")
}

func (g *Game) terminate(state State, action string) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.state.Terminal() {
		return ErrGameOver
	}
	g.state = state
	g.turn = uuid.Nil
	g.logAction(uuid.Nil, action, nil)
	g.markAllUpdated()
	return nil
}

// LeaveGame removes id from the game and reports whether the game is now empty.
// The owner leaving an unfinished game cancels it.
func (g *Game) LeaveGame(id uuid.UUID) (bool, error) {
	empty, err := g.leave(id)
	if err == nil && empty && g.OnEmpty != nil {
		g.OnEmpty(g.ID)
	}
	return empty, err
}

func (g *Game) leave(id uuid.UUID) (bool, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	idx := g.indexOf(id)
	if idx < 0 {
		return len(g.players) == 0, ErrPlayerNotFound
	}
	p := g.players[idx]
	g.players = append(g.players[:idx], g.players[idx+1:]...)
	g.logAction(id, "player_leave", nil)
	defer g.markAllUpdated()

	if len(g.players) == 0 {
		if !g.state.Terminal() {
			g.state = StateCancelled
		}
		return true, nil
	}
	if id == g.OwnerID && !g.state.Terminal() {
		g.state = StateCancelled
		g.turn = uuid.Nil
		g.logAction(id, "game_cancel", map[string]interface{}{"reason": "owner_left"})
		return false, nil
	}

	switch g.state {
	case StateInProgress:
		if !p.active() {
			break
		}
		g.roundSize--
		if g.activeCount() <= 1 {
			g.completeRound()
			break
		}
		if g.turn == id {
			// idx now addresses the seat after the leaver.
			g.settleTrick(idx)
		}
	case StateTrading:
		if partner := g.playerByRole(TradePartner(p.Data.Role)); partner != nil {
			partner.Data.DoneTrading()
		}
		if len(g.players) < g.Rules.MinPlayers {
			for _, o := range g.players {
				o.Data.DoneTrading()
			}
			g.state = StateFinished
		} else if !g.tradesPending() {
			g.beginPlay()
		}
	}
	return false, nil
}

// finishPlayer records that p emptied its hand.
func (g *Game) finishPlayer(p *PlayerObject) {
	g.outCounter++
	if err := p.Data.SetOutCount(g.outCounter); err != nil {
		return
	}
	g.assignRole(p)
	g.logAction(p.ID, "player_out", map[string]interface{}{
		"outCount": p.Data.OutCount,
		"role":     p.Data.Role,
	})
}

// completeRound ranks the last player standing and finishes the round.
func (g *Game) completeRound() {
	for _, p := range g.players {
		if p.active() {
			g.finishPlayer(p)
		}
	}
	standings := make(map[string]interface{}, len(g.players))
	for _, p := range g.players {
		standings[p.ID.String()] = p.Data.Role
	}
	g.table = nil
	g.turn = uuid.Nil
	g.state = StateFinished
	g.logAction(uuid.Nil, "round_end", map[string]interface{}{
		"round": g.round,
		"roles": standings,
	})
}

func (g *Game) clearTrick() {
	g.table = nil
	for _, p := range g.players {
		p.Data.Passed = false
	}
}

// leaderAfter returns p if it can still lead, otherwise the next active player after seat idx.
func (g *Game) leaderAfter(idx int, p *PlayerObject) *PlayerObject {
	if p.active() {
		return p
	}
	return g.seek(idx+1, (*PlayerObject).active)
}

// seek returns the first player at or after seat start, wrapping around, for which ok holds.
func (g *Game) seek(start int, ok func(*PlayerObject) bool) *PlayerObject {
	n := len(g.players)
	for k := 0; k < n; k++ {
		if p := g.players[(start+k)%n]; ok(p) {
			return p
		}
	}
	return nil
}

func (g *Game) indexOf(id uuid.UUID) int {
	for i, p := range g.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) playerByID(id uuid.UUID) *PlayerObject {
	if i := g.indexOf(id); i >= 0 {
		return g.players[i]
	}
	return nil
}

func (g *Game) playerByRole(role models.Role) *PlayerObject {
	if role == models.RoleNeutral {
		return nil
	}
	for _, p := range g.players {
		if p.Data.Role == role {
			return p
		}
	}
	return nil
}

func (g *Game) activeCount() int {
	n := 0
	for _, p := range g.players {
		if p.active() {
			n++
		}
	}
	return n
}

func (g *Game) tradesPending() bool {
	for _, p := range g.players {
		if p.Data.MustTrade {
			return true
		}
	}
	return false
}

func (g *Game) markAllUpdated() {
	for _, p := range g.players {
		p.stateUpdated = true
	}
}

// logAction records an action for the history service.
func (g *Game) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.ActionLogFn == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	g.ActionLogFn(cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	})
}
