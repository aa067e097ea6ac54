// internal/game/game_test.go
package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartNeedsMinPlayers(t *testing.T) {
	g, _, _ := setupTestGame(t, 2)
	err := g.Start()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.Equal(t, StateLobby, g.State())
}

func TestStartDealsWholeDeck(t *testing.T) {
	g, ids, ml := setupTestGame(t, 4)
	g.SetShuffler(nil)
	require.NoError(t, g.Start())

	assert.Equal(t, StateInProgress, g.State())
	seen := make(map[models.Card]bool)
	for i := range ids {
		p := g.playerAt(i)
		assert.Len(t, p.Hand, 13)
		assert.Equal(t, 13, p.Data.NumberOfCards)
		for _, c := range p.Hand {
			assert.False(t, seen[c])
			seen[c] = true
		}
	}
	assert.Len(t, seen, 52)

	// The unshuffled deck puts the three of clubs in seat 0.
	assert.Equal(t, ids[0], g.currentTurn())
	assert.Contains(t, ml.types(), "round_start")

	assert.ErrorIs(t, g.Start(), ErrGameStarted)
	assert.ErrorIs(t, g.AddPlayer(uuid.New(), "late"), ErrGameStarted)
}

func TestAddPlayerLimits(t *testing.T) {
	g, ids, _ := setupTestGame(t, 8)
	assert.ErrorIs(t, g.AddPlayer(uuid.New(), "ninth"), ErrGameFull)
	assert.ErrorIs(t, g.AddPlayer(ids[3], "again"), ErrAlreadySeated)
}

func TestPlayValidation(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	playWithHands(t, g,
		cards(t, "5C", "5D", "9C"),
		cards(t, "4C", "7D", "8D"),
		cards(t, "6C", "JD", "QD"),
	)

	_, err := g.PlayCards(ids[1], cards(t, "7D"))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = g.PlayCards(ids[0], cards(t, "KC"))
	assert.ErrorIs(t, err, ErrCardNotInHand)

	_, err = g.PlayCards(ids[0], cards(t, "5C", "9C"))
	assert.ErrorIs(t, err, ErrIllegalPlay)

	_, err = g.PlayCards(uuid.New(), cards(t, "5C"))
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	out, err := g.PlayCards(ids[0], cards(t, "5C", "5D"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, out)
	assert.Equal(t, 1, g.playerAt(0).Data.NumberOfCards)

	// The trick size is now two.
	_, err = g.PlayCards(ids[1], cards(t, "7D"))
	assert.ErrorIs(t, err, ErrIllegalPlay)
	assert.Equal(t, 3, g.playerAt(1).Data.NumberOfCards, "rejected play must not touch the hand")
	assert.Len(t, g.tableCards(), 2)
}

func TestPassOnEmptyTableRejected(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	playWithHands(t, g, cards(t, "5C"), cards(t, "7D"), cards(t, "9H"))

	_, err := g.Pass(ids[0])
	assert.ErrorIs(t, err, ErrCannotPass)
	assert.Equal(t, ids[0], g.currentTurn())
	assert.False(t, g.playerAt(0).Data.Passed)
}

func TestPassBeforeStartRejected(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	_, err := g.Pass(ids[0])
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestAllPassScenario(t *testing.T) {
	g, ids, _ := setupTestGame(t, 4)
	playWithHands(t, g,
		cards(t, "5C", "8C", "10C"),
		cards(t, "7D", "9D", "JD"),
		cards(t, "3H", "4H", "6H"),
		cards(t, "3S", "4S", "6S"),
	)

	out, err := g.PlayCards(ids[0], cards(t, "5C"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, out)

	_, err = g.PlayCards(ids[1], cards(t, "7D"))
	require.NoError(t, err)

	out, err = g.Pass(ids[2])
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, out)
	out, err = g.Pass(ids[3])
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, out)

	// A has not passed yet and may still beat the seven.
	assert.Equal(t, ids[0], g.currentTurn())
	assert.Len(t, g.tableCards(), 1)

	out, err = g.Pass(ids[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeTrickCleared, out)
	assert.Equal(t, ids[1], g.currentTurn(), "last player to play leads the next trick")
	assert.Empty(t, g.tableCards())
	assert.Equal(t, StateInProgress, g.State(), "passing never ends a round")

	// Leading with any size is allowed again.
	_, err = g.PlayCards(ids[1], cards(t, "9D"))
	require.NoError(t, err)
	for i := range ids {
		assert.False(t, g.playerAt(i).Data.Passed, "opening a trick clears passes")
	}
}

func TestSoleContenderKeepsPassesUntilLead(t *testing.T) {
	g, ids, _ := setupTestGame(t, 4)
	playWithHands(t, g,
		cards(t, "5C", "6C"),
		cards(t, "7D", "9D"),
		cards(t, "3H", "4H"),
		cards(t, "3S", "4S"),
	)

	_, err := g.PlayCards(ids[0], cards(t, "5C"))
	require.NoError(t, err)
	for _, id := range ids[1:] {
		_, err = g.Pass(id)
		require.NoError(t, err)
	}

	assert.Equal(t, ids[0], g.currentTurn())
	assert.Empty(t, g.tableCards())
	for i := 1; i < 4; i++ {
		assert.True(t, g.playerAt(i).Data.Passed)
	}

	_, err = g.PlayCards(ids[0], cards(t, "6C"))
	require.NoError(t, err)
	for i := 1; i < 4; i++ {
		assert.False(t, g.playerAt(i).Data.Passed)
	}
}

func TestLeaderGoingOutPassesLead(t *testing.T) {
	g, ids, ml := setupTestGame(t, 3)
	playWithHands(t, g,
		cards(t, "5C", "2C"),
		cards(t, "7D", "8D"),
		cards(t, "9H", "10H"),
	)

	_, err := g.PlayCards(ids[0], cards(t, "5C"))
	require.NoError(t, err)
	_, err = g.Pass(ids[1])
	require.NoError(t, err)
	_, err = g.PlayCards(ids[2], cards(t, "9H"))
	require.NoError(t, err)
	_, err = g.Pass(ids[0])
	require.NoError(t, err)

	// B passed, A passed: C wins and leads.
	assert.Equal(t, ids[2], g.currentTurn())
	_, err = g.PlayCards(ids[2], cards(t, "10H"))
	require.NoError(t, err)

	// C went out on its lead. A answers with its last card and the round ends.
	assert.Equal(t, ids[0], g.currentTurn())
	out, err := g.PlayCards(ids[0], cards(t, "2C"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRoundOver, out)
	assert.Contains(t, ml.types(), "round_end")
}

func TestBurnPlayerLeadsAgain(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	playWithHands(t, g,
		cards(t, "5C", "2C", "3C"),
		cards(t, "7D", "8D"),
		cards(t, "9H", "10H"),
	)

	_, err := g.PlayCards(ids[0], cards(t, "5C"))
	require.NoError(t, err)
	_, err = g.PlayCards(ids[1], cards(t, "7D"))
	require.NoError(t, err)
	_, err = g.PlayCards(ids[2], cards(t, "9H"))
	require.NoError(t, err)

	out, err := g.PlayCards(ids[0], cards(t, "2C"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeTrickCleared, out)
	assert.Equal(t, ids[0], g.currentTurn())
	assert.Empty(t, g.tableCards())
}

func TestRoundCompletionManyPlayers(t *testing.T) {
	g, ids, _ := setupTestGame(t, 4)
	playWithHands(t, g,
		cards(t, "3C"),
		cards(t, "4C"),
		cards(t, "5C"),
		cards(t, "6C", "7C"),
	)

	prev := []int{1, 1, 1, 2}
	for i, id := range ids[:3] {
		out, err := g.PlayCards(id, []models.Card{g.playerAt(i).Hand[0]})
		require.NoError(t, err)
		for j := range ids {
			n := g.playerAt(j).Data.NumberOfCards
			assert.LessOrEqual(t, n, prev[j], "hand size never grows during play")
			prev[j] = n
		}
		if i < 2 {
			assert.NotEqual(t, OutcomeRoundOver, out)
		} else {
			assert.Equal(t, OutcomeRoundOver, out)
		}
	}

	assert.Equal(t, StateFinished, g.State())
	want := []models.Role{models.RolePresident, models.RoleVicePresident, models.RoleViceBum, models.RoleBum}
	for i := range ids {
		d := g.playerAt(i).Data
		assert.Equal(t, i+1, d.OutCount)
		assert.Equal(t, want[i], d.Role)
		assert.True(t, d.MustTrade)
		assert.Equal(t, []models.Role{want[i]}, d.PreviousRoles)
	}

	st, err := g.StateFor(ids[1])
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, -1, -2}, st.Scores)

	// Late passes are absorbed.
	out, err := g.Pass(ids[3])
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRoundOver, out)
}

func TestRoundCompletionFewPlayers(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	playWithHands(t, g,
		cards(t, "3C"),
		cards(t, "4C"),
		cards(t, "5C", "6C"),
	)

	for i, id := range ids[:2] {
		_, err := g.PlayCards(id, []models.Card{g.playerAt(i).Hand[0]})
		require.NoError(t, err)
	}

	assert.Equal(t, StateFinished, g.State())
	assert.Equal(t, models.RolePresident, g.playerAt(0).Data.Role)
	assert.Equal(t, models.RoleNeutral, g.playerAt(1).Data.Role)
	assert.False(t, g.playerAt(1).Data.MustTrade)
	assert.Equal(t, models.RoleBum, g.playerAt(2).Data.Role)
	assert.Equal(t, 3, g.playerAt(2).Data.OutCount)
}

// finishFourPlayerRound plays a quick round where seat i finishes in position i+1.
func finishFourPlayerRound(t *testing.T, g *Game, ids []uuid.UUID) {
	t.Helper()
	playWithHands(t, g,
		cards(t, "3C"),
		cards(t, "4C"),
		cards(t, "5C"),
		cards(t, "6C", "7C"),
	)
	for i, id := range ids[:3] {
		_, err := g.PlayCards(id, []models.Card{g.playerAt(i).Hand[0]})
		require.NoError(t, err)
	}
	require.Equal(t, StateFinished, g.State())
}

func TestTradingRound(t *testing.T) {
	g, ids, _ := setupTestGame(t, 4)
	finishFourPlayerRound(t, g, ids)

	g.SetShuffler(nil)
	require.NoError(t, g.Start())
	assert.Equal(t, StateTrading, g.State())

	_, err := g.PlayCards(ids[3], []models.Card{g.playerAt(3).Hand[0]})
	assert.ErrorIs(t, err, ErrNotInProgress)

	president := g.playerAt(0)
	bum := g.playerAt(3)

	// A card from someone else's hand is rejected and nothing changes.
	bad := []models.Card{president.Hand[0], bum.Hand[0]}
	err = g.GiveCards(ids[0], bad)
	assert.ErrorIs(t, err, ErrCardNotInHand)
	assert.Len(t, president.Hand, 13)
	assert.True(t, president.Data.MustTrade)

	err = g.GiveCards(ids[0], president.Hand[:1])
	assert.ErrorIs(t, err, ErrWrongTradeCount)

	gift := append([]models.Card{}, president.Hand[:2]...)
	require.NoError(t, g.GiveCards(ids[0], gift))
	assert.Equal(t, 11, president.Data.NumberOfCards)
	assert.Equal(t, 15, bum.Data.NumberOfCards)
	assert.True(t, ContainsAll(bum.Hand, gift))
	assert.ErrorIs(t, g.GiveCards(ids[0], president.Hand[:2]), ErrNoTradePending)

	require.NoError(t, g.GiveCards(ids[3], append([]models.Card{}, bum.Hand[:2]...)))
	require.NoError(t, g.GiveCards(ids[1], append([]models.Card{}, g.playerAt(1).Hand[:1]...)))
	assert.Equal(t, StateTrading, g.State())
	require.NoError(t, g.GiveCards(ids[2], append([]models.Card{}, g.playerAt(2).Hand[:1]...)))

	assert.Equal(t, StateInProgress, g.State())
	assert.Equal(t, ids[3], g.currentTurn(), "previous bum leads")
	for i := range ids {
		d := g.playerAt(i).Data
		assert.Equal(t, 13, d.NumberOfCards)
		assert.Equal(t, models.RoleNeutral, d.Role)
		assert.False(t, d.MustTrade)
		assert.Len(t, d.PreviousRoles, 1)
	}
}

func TestRoleHistoryCleared(t *testing.T) {
	g, ids, _ := setupTestGame(t, 4)
	g.Rules.RetainRoleHistory = false
	finishFourPlayerRound(t, g, ids)

	playWithHands(t, g,
		cards(t, "3C"),
		cards(t, "4C"),
		cards(t, "5C"),
		cards(t, "6C", "7C"),
	)
	for i := range ids {
		assert.Empty(t, g.playerAt(i).Data.PreviousRoles)
	}
}

func TestTradeDroppedWhenPartnerLeaves(t *testing.T) {
	g, ids, _ := setupTestGame(t, 5)
	playWithHands(t, g,
		cards(t, "3C"),
		cards(t, "4C"),
		cards(t, "5C"),
		cards(t, "6C"),
		cards(t, "7C", "8C"),
	)
	for i, id := range ids[:4] {
		_, err := g.PlayCards(id, []models.Card{g.playerAt(i).Hand[0]})
		require.NoError(t, err)
	}
	require.Equal(t, StateFinished, g.State())

	// The bum leaves between rounds; the president has nobody to trade with.
	_, err := g.LeaveGame(ids[4])
	require.NoError(t, err)
	g.SetShuffler(nil)
	require.NoError(t, g.Start())
	assert.Equal(t, StateTrading, g.State())
	assert.False(t, g.playerAt(0).Data.MustTrade)
	assert.True(t, g.playerAt(1).Data.MustTrade)

	// The vice-bum leaving mid-trade releases the vice-president as well.
	_, err = g.LeaveGame(ids[3])
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, g.State())
}

func TestLeaveOnTurnMovesTurn(t *testing.T) {
	g, ids, _ := setupTestGame(t, 4)
	playWithHands(t, g,
		cards(t, "5C", "6C"),
		cards(t, "7D", "9D"),
		cards(t, "3H", "JH"),
		cards(t, "3S", "QS"),
	)

	_, err := g.PlayCards(ids[0], cards(t, "5C"))
	require.NoError(t, err)
	require.Equal(t, ids[1], g.currentTurn())

	empty, err := g.LeaveGame(ids[1])
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, ids[2], g.currentTurn())
	assert.Equal(t, StateInProgress, g.State())

	_, err = g.LeaveGame(ids[1])
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestLeaveEndsRoundWithOneActivePlayer(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	playWithHands(t, g,
		cards(t, "5C"),
		cards(t, "7D", "9D"),
		cards(t, "3H", "JH"),
	)

	_, err := g.PlayCards(ids[0], cards(t, "5C"))
	require.NoError(t, err)
	_, err = g.LeaveGame(ids[2])
	require.NoError(t, err)

	assert.Equal(t, StateFinished, g.State())
	assert.Equal(t, 2, g.playerAt(1).Data.OutCount)
}

func TestOwnerLeaveCancels(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	_, err := g.LeaveGame(ids[0])
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, g.State())
}

func TestLastLeaveRemovesGameFromStore(t *testing.T) {
	store := NewGameStore()
	g, ids, _ := setupTestGame(t, 2)
	store.AddGame(g)
	require.Len(t, store.ListGames(), 1)

	_, err := g.LeaveGame(ids[1])
	require.NoError(t, err)
	empty, err := g.LeaveGame(ids[0])
	require.NoError(t, err)
	assert.True(t, empty)

	_, ok := store.GetGame(g.ID)
	assert.False(t, ok)
}

func TestListGamesSkipsCancelled(t *testing.T) {
	store := NewGameStore()
	open, _, _ := setupTestGame(t, 3)
	cancelled, _, _ := setupTestGame(t, 3)
	store.AddGame(open)
	store.AddGame(cancelled)
	require.NoError(t, cancelled.CancelGame())

	listings := store.ListGames()
	require.Len(t, listings, 1)
	assert.Equal(t, open.ID, listings[0].ID)
	assert.Equal(t, 3, listings[0].NumberOfPlayers)
	assert.Equal(t, "p0", listings[0].Owner)
	assert.False(t, listings[0].HasStarted)
}

func TestHeartbeat(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	now := time.UnixMilli(1_000_000)

	res, err := g.Heartbeat(ids[1], now.UnixMilli()-40, now)
	require.NoError(t, err)
	require.NotNil(t, res.State, "a stale view is answered with the state")
	assert.Equal(t, 1, res.State.You)
	assert.Equal(t, StateLobby, res.State.State)

	res, err = g.Heartbeat(ids[1], now.UnixMilli()-40, now)
	require.NoError(t, err)
	assert.Nil(t, res.State)
	assert.Equal(t, now.UnixMilli(), res.ServerTime)
	assert.Equal(t, int64(40), g.playerAt(1).Data.Latency)

	// Clock skew never produces a negative latency.
	_, err = g.Heartbeat(ids[1], now.UnixMilli()+500, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), g.playerAt(1).Data.Latency)

	g.MarkConnectionLost(ids[2])
	assert.Equal(t, models.LostConnectionLatency, g.playerAt(2).Data.Latency)

	require.NoError(t, g.CancelGame())
	res, err = g.Heartbeat(ids[1], now.UnixMilli(), now)
	require.NoError(t, err)
	assert.True(t, res.Evict)
	assert.Equal(t, StateCancelled, res.Reason)
}

func TestHeartbeatAfterStop(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	now := time.Now()
	require.NoError(t, g.Stop())
	assert.ErrorIs(t, g.CancelGame(), ErrGameOver)

	res, err := g.Heartbeat(ids[1], now.UnixMilli(), now)
	require.NoError(t, err)
	require.NotNil(t, res.State)
	assert.Equal(t, StateStopped, res.State.State)

	res, err = g.Heartbeat(ids[1], now.UnixMilli(), now)
	require.NoError(t, err)
	assert.True(t, res.Evict)
	assert.Equal(t, StateStopped, res.Reason)
}

func TestStateForHidesOtherHands(t *testing.T) {
	g, ids, _ := setupTestGame(t, 3)
	playWithHands(t, g, cards(t, "5C", "6C"), cards(t, "7D"), cards(t, "9H", "10H", "JH"))

	st, err := g.StateFor(ids[2])
	require.NoError(t, err)
	assert.Equal(t, cards(t, "9H", "10H", "JH"), st.Hand)
	assert.Equal(t, 0, st.Turn)
	assert.Equal(t, "p0", st.CurrentPlayer)
	assert.Equal(t, 2, st.You)
	assert.Equal(t, 1, st.Players[1].NumberOfCards)
}

func TestGamePassword(t *testing.T) {
	owner := uuid.New()
	g, err := NewGame("locked", owner, "owner", "secret", DefaultRules())
	require.NoError(t, err)
	assert.True(t, g.HasPassword())
	assert.True(t, g.Listing().HasPassword)

	ok, err := g.CheckPassword("secret")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = g.CheckPassword("guess")
	require.NoError(t, err)
	assert.False(t, ok)
}
