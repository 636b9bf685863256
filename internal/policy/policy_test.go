package policy

import (
	"testing"

	"github.com/keepkey/device-gateway/internal/session"
	"github.com/keepkey/device-gateway/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestIsBusy_FalseWhenIdle(t *testing.T) {
	sessions := session.NewRegistry()
	sessions.Create("dev-1")
	g := New(sessions)

	require.False(t, g.IsBusy("dev-1"))
}

func TestIsBusy_TrueDuringPrompt(t *testing.T) {
	sessions := session.NewRegistry()
	s := sessions.Create("dev-1")
	_, err := s.BeginPrompt(session.AwaitingPin, session.PendingPin, "get_address")
	require.NoError(t, err)
	g := New(sessions)

	require.True(t, g.IsBusy("dev-1"))
}

func TestIsBusy_FalseWhenNotRegistered(t *testing.T) {
	g := New(session.NewRegistry())
	require.False(t, g.IsBusy("ghost"))
}

func TestFeatures_ReturnsCachedValue(t *testing.T) {
	sessions := session.NewRegistry()
	s := sessions.Create("dev-1")
	s.LastFeatures = &wire.Features{Label: "mine"}
	g := New(sessions)

	features, ok := g.Features("dev-1")
	require.True(t, ok)
	require.Equal(t, "mine", features.Label)
}

func TestFeatures_NotOkBeforeFirstFetch(t *testing.T) {
	sessions := session.NewRegistry()
	sessions.Create("dev-1")
	g := New(sessions)

	_, ok := g.Features("dev-1")
	require.False(t, ok)
}
