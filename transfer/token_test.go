package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestCompletedTokenIsComplete(t *testing.T) {
	tok := completedToken()
	require.True(t, tok.IsComplete())
	require.NoError(t, tok.Wait(time.Millisecond))
}

func TestTokenCloneAndReleaseTrackRefs(t *testing.T) {
	tok := newToken(vk.NullHandle, vk.NullHandle)
	require.EqualValues(t, 1, tok.state.refs.Load())

	clone := tok.Clone()
	require.EqualValues(t, 2, tok.state.refs.Load())

	clone.Release()
	require.EqualValues(t, 1, tok.state.refs.Load())

	tok.Release()
	require.EqualValues(t, 0, tok.state.refs.Load())
}

func TestTokenDebugIDsAreUnique(t *testing.T) {
	a := completedToken()
	b := completedToken()
	require.NotEqual(t, a.DebugID, b.DebugID)
}
