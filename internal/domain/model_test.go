package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	states := []ExchangeState{StatePending, StateAccepted, StateCompleted, StateCancelled}
	allowed := map[ExchangeState][]ExchangeState{
		StatePending:  {StateAccepted, StateCancelled},
		StateAccepted: {StateCancelled},
	}

	for _, from := range states {
		for _, to := range states {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			require.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_UnknownState(t *testing.T) {
	require.False(t, CanTransition(ExchangeState("BOGUS"), StateAccepted))
	require.False(t, CanTransition(StatePending, ExchangeState("BOGUS")))
}

func TestStatePredicates(t *testing.T) {
	req := require.New(t)

	req.True(StatePending.IsActive())
	req.True(StateAccepted.IsActive())
	req.False(StateCompleted.IsActive())
	req.False(StateCancelled.IsActive())

	req.False(StatePending.IsTerminal())
	req.False(StateAccepted.IsTerminal())
	req.True(StateCompleted.IsTerminal())
	req.True(StateCancelled.IsTerminal())

	req.True(StatePending.Valid())
	req.True(StateCancelled.Valid())
	req.False(ExchangeState("").Valid())
	req.False(ExchangeState("pending").Valid())
}

func TestNextState(t *testing.T) {
	req := require.New(t)

	req.Equal(StateAccepted, NextState(false, false))
	req.Equal(StateAccepted, NextState(true, false))
	req.Equal(StateAccepted, NextState(false, true))
	req.Equal(StateCompleted, NextState(true, true))
}

func TestChatParticipants(t *testing.T) {
	req := require.New(t)
	chat := &Chat{OffererUID: "owner", InterestedUID: "requester"}

	req.True(chat.IsParticipant("owner"))
	req.True(chat.IsParticipant("requester"))
	req.False(chat.IsParticipant("someone-else"))

	req.Equal("requester", chat.Counterpart("owner"))
	req.Equal("owner", chat.Counterpart("requester"))
}

func TestExchangeConfirmedBy(t *testing.T) {
	req := require.New(t)
	chat := &Chat{OffererUID: "owner", InterestedUID: "requester"}
	exchange := &Exchange{ConfirmedByOfferer: true, ConfirmedByInterested: false}

	req.True(exchange.ConfirmedBy(chat, "owner"))
	req.False(exchange.ConfirmedBy(chat, "requester"))
}
