package session

import (
	"testing"
	"time"

	"github.com/rbright/lampwake/internal/fsm"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestGateStartsIdleAndIgnoresCommands(t *testing.T) {
	g := NewGate(0)
	require.Equal(t, DefaultSilenceTimeout, g.Timeout())
	require.Equal(t, fsm.StateIdle, g.State())
	require.Equal(t, AdmitIdle, g.Begin(t0))
	require.False(t, g.Snapshot().InFlight)
}

func TestGateWakeArmsAndResetsActivity(t *testing.T) {
	g := NewGate(5 * time.Second)

	require.NoError(t, g.Wake(t0))
	require.Equal(t, Snapshot{State: fsm.StateArmed, LastActivity: t0}, g.Snapshot())

	later := t0.Add(3 * time.Second)
	require.NoError(t, g.Wake(later))
	require.Equal(t, later, g.Snapshot().LastActivity)

	require.False(t, g.Expire(t0.Add(5*time.Second)))
	require.True(t, g.Expire(later.Add(5*time.Second)))
}

func TestGateTimeoutFiresExactlyOnce(t *testing.T) {
	g := NewGate(5 * time.Second)
	require.NoError(t, g.Wake(t0))

	require.Equal(t, AdmitCommand, g.Begin(t0.Add(time.Second)))
	g.Finish(t0.Add(time.Second))
	require.Equal(t, fsm.StateArmed, g.State())

	require.False(t, g.Expire(t0.Add(5999*time.Millisecond)))
	require.True(t, g.Expire(t0.Add(7*time.Second)))
	require.Equal(t, fsm.StateIdle, g.State())

	for i := 0; i < 5; i++ {
		require.False(t, g.Expire(t0.Add(time.Duration(8+i)*time.Second)))
	}
}

func TestGateBeginClosesElapsedWindow(t *testing.T) {
	g := NewGate(5 * time.Second)
	require.NoError(t, g.Wake(t0))

	require.Equal(t, AdmitExpired, g.Begin(t0.Add(5*time.Second)))
	require.Equal(t, fsm.StateIdle, g.State())
	require.False(t, g.Expire(t0.Add(6*time.Second)))
	require.Equal(t, AdmitIdle, g.Begin(t0.Add(6*time.Second)))
}

func TestGateDoesNotExpireDuringDispatch(t *testing.T) {
	g := NewGate(5 * time.Second)
	require.NoError(t, g.Wake(t0))

	require.Equal(t, AdmitCommand, g.Begin(t0.Add(time.Second)))
	require.True(t, g.Snapshot().InFlight)
	require.False(t, g.Expire(t0.Add(10*time.Second)))

	g.Finish(t0.Add(10 * time.Second))
	require.False(t, g.Snapshot().InFlight)
	require.False(t, g.Expire(t0.Add(14*time.Second)))
	require.True(t, g.Expire(t0.Add(15*time.Second)))
}

func TestGateFinishNeverRewindsActivity(t *testing.T) {
	g := NewGate(5 * time.Second)
	require.NoError(t, g.Wake(t0.Add(2*time.Second)))
	require.Equal(t, AdmitCommand, g.Begin(t0.Add(2*time.Second)))
	g.Finish(t0)
	require.Equal(t, t0.Add(2*time.Second), g.Snapshot().LastActivity)
}

func TestGateCancelIsTerminal(t *testing.T) {
	for _, arm := range []bool{false, true} {
		g := NewGate(time.Second)
		if arm {
			require.NoError(t, g.Wake(t0))
		}

		require.True(t, g.Cancel())
		require.Equal(t, fsm.StateTerminated, g.State())
		require.False(t, g.Cancel())
		require.Error(t, g.Wake(t0))
		require.Equal(t, AdmitTerminated, g.Begin(t0))
		require.False(t, g.Expire(t0.Add(time.Hour)))
	}
}

func TestAdmissionString(t *testing.T) {
	require.Equal(t, "command", AdmitCommand.String())
	require.Equal(t, "expired", AdmitExpired.String())
	require.Equal(t, "unknown", Admission(0).String())
}
