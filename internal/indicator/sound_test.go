package indicator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/lampwake/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEveryCueKindHasProfileAndPCM(t *testing.T) {
	for _, kind := range []cueKind{cueArmed, cueAcknowledge, cueTimeout} {
		c, ok := lookupCue(kind)
		require.True(t, ok, kind.String())
		require.NotEmpty(t, c.mediaRole, kind.String())
		require.Positive(t, c.timeout, kind.String())
		require.NotEmpty(t, pcmCache[kind], kind.String())
	}
	_, ok := lookupCue(cueKind(99))
	require.False(t, ok)
	require.Equal(t, "unknown", cueKind(0).String())
}

func TestAcknowledgeIsShorterThanWindowCues(t *testing.T) {
	require.Less(t, len(pcmCache[cueAcknowledge]), len(pcmCache[cueTimeout]))
	ack, _ := lookupCue(cueAcknowledge)
	timeout, _ := lookupCue(cueTimeout)
	require.Less(t, ack.timeout, timeout.timeout)
	require.NotEqual(t, ack.mediaRole, timeout.mediaRole)
}

func TestRenderLengthAndSilentGap(t *testing.T) {
	sweeps := []sweep{
		{fromHz: 440, toHz: 880, length: 50 * time.Millisecond},
		{length: 25 * time.Millisecond},
		{fromHz: 440, toHz: 440, length: 50 * time.Millisecond},
	}
	pcm := render(sweeps, 0.2)
	require.Len(t, pcm, 800+400+800)

	require.Zero(t, pcm[0])
	for _, sample := range pcm[800:1200] {
		require.Zero(t, sample)
	}

	peak := int16(0)
	for _, sample := range pcm {
		peak = max(peak, sample)
	}
	require.Positive(t, peak)
	volume := 0.2
	require.LessOrEqual(t, int(peak), int(volume*32767)+1)
}

func TestRenderSilentWhenVolumeIsZero(t *testing.T) {
	pcm := render([]sweep{{fromHz: 440, toHz: 440, length: 10 * time.Millisecond}}, 0)
	require.Len(t, pcm, 160)
	for _, sample := range pcm {
		require.Zero(t, sample)
	}
	require.Empty(t, render(nil, 0.2))
}

func TestFadeGainEdges(t *testing.T) {
	require.Zero(t, fadeGain(0, 100, 10))
	require.Zero(t, fadeGain(99, 100, 10))
	require.Equal(t, 1.0, fadeGain(50, 100, 10))
	require.InDelta(t, 0.5, fadeGain(5, 100, 10), 1e-9)
}

func TestPCMSourceSignalsEndOfData(t *testing.T) {
	src := &pcmSource{samples: []int16{1, 2, 3}}
	buf := make([]int16, 2)

	n, err := src.read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = src.read(buf)
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, int16(3), buf[0])
}

func TestPwPlayArgsCarryCueRoleAndVolume(t *testing.T) {
	c, _ := lookupCue(cueAcknowledge)
	require.Equal(t, []string{"--media-role", "Event", "--volume", "0.16", "/tmp/ack.wav"}, pwPlayArgs("/tmp/ack.wav", c))
}

func TestCuePathSelectsConfiguredFile(t *testing.T) {
	cfg := config.FeedbackConfig{
		SoundArmedFile:       " /tmp/armed.wav ",
		SoundAcknowledgeFile: "/tmp/ack.wav",
	}
	require.Equal(t, "/tmp/armed.wav", cuePath(cueArmed, cfg))
	require.Equal(t, "/tmp/ack.wav", cuePath(cueAcknowledge, cfg))
	require.Empty(t, cuePath(cueTimeout, cfg))
	require.Empty(t, cuePath(cueKind(99), cfg))
}

func TestExpandUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, home, expandUserPath("~"))
	require.Equal(t, filepath.Join(home, "cues", "armed.wav"), expandUserPath("~/cues/armed.wav"))
	require.Equal(t, "/abs/armed.wav", expandUserPath("/abs/armed.wav"))
	require.Empty(t, expandUserPath("   "))
}

func TestPlayCueFileMissingFile(t *testing.T) {
	c, _ := lookupCue(cueArmed)
	err := playCueFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), c)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEmitCueRejectsCancelledContextAndUnknownKind(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, emitCue(ctx, cueArmed, config.FeedbackConfig{}), context.Canceled)

	err := emitCue(context.Background(), cueKind(42), config.FeedbackConfig{})
	require.ErrorContains(t, err, "unknown cue")
}
