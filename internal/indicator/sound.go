package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/lampwake/internal/config"
)

type cueKind int

const (
	cueArmed cueKind = iota + 1
	cueAcknowledge
	cueTimeout
)

func (k cueKind) String() string {
	switch k {
	case cueArmed:
		return "armed"
	case cueAcknowledge:
		return "acknowledge"
	case cueTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

const cueSampleRate = 16000

// sweep glides linearly from one frequency to another. A zero frequency is silence.
type sweep struct {
	fromHz, toHz float64
	length       time.Duration
}

// cue is everything needed to play one kind of feedback.
type cue struct {
	// mediaRole is passed to pw-play so the session manager can route or duck it.
	mediaRole string
	// volume applies to both cue files and synthesized sweeps.
	volume  float64
	timeout time.Duration
	sweeps  []sweep
}

var cues = map[cueKind]cue{
	// Rising glide: the gate is listening.
	cueArmed: {
		mediaRole: "Notification",
		volume:    0.2,
		timeout:   2 * time.Second,
		sweeps:    []sweep{{fromHz: 660, toHz: 1320, length: 140 * time.Millisecond}},
	},
	// Two short blips: the light command was accepted.
	cueAcknowledge: {
		mediaRole: "Event",
		volume:    0.16,
		timeout:   1500 * time.Millisecond,
		sweeps: []sweep{
			{fromHz: 988, toHz: 988, length: 55 * time.Millisecond},
			{length: 35 * time.Millisecond},
			{fromHz: 988, toHz: 988, length: 55 * time.Millisecond},
		},
	},
	// Falling glide: the armed window closed without a command.
	cueTimeout: {
		mediaRole: "Notification",
		volume:    0.18,
		timeout:   2 * time.Second,
		sweeps:    []sweep{{fromHz: 880, toHz: 330, length: 220 * time.Millisecond}},
	},
}

// pcmCache holds the rendered sweeps; cue shapes are fixed at build time.
var pcmCache = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cues))
	for kind, c := range cues {
		out[kind] = render(c.sweeps, c.volume)
	}
	return out
}()

func lookupCue(kind cueKind) (cue, bool) {
	c, ok := cues[kind]
	return c, ok
}

// emitCue plays the configured cue file for kind, or its synthesized sweep
// when no file is set or the file cannot be played.
func emitCue(ctx context.Context, kind cueKind, cfg config.FeedbackConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := lookupCue(kind)
	if !ok {
		return fmt.Errorf("unknown cue %d", int(kind))
	}

	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path, c); err == nil {
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return playPCM(kind, pcmCache[kind])
}

func cuePath(kind cueKind, cfg config.FeedbackConfig) string {
	files := map[cueKind]string{
		cueArmed:       cfg.SoundArmedFile,
		cueAcknowledge: cfg.SoundAcknowledgeFile,
		cueTimeout:     cfg.SoundTimeoutFile,
	}
	return expandUserPath(files[kind])
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

// pwPlayArgs builds the pw-play invocation for a cue file.
func pwPlayArgs(path string, c cue) []string {
	return []string{
		"--media-role", c.mediaRole,
		"--volume", strconv.FormatFloat(c.volume, 'f', 2, 64),
		path,
	}
}

func playCueFile(ctx context.Context, path string, c cue) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	if err := exec.CommandContext(ctx, "pw-play", pwPlayArgs(path, c)...).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// pcmSource feeds a fixed buffer to a Pulse playback stream.
type pcmSource struct {
	samples []int16
	pos     int
}

func (s *pcmSource) read(buf []int16) (int, error) {
	n := copy(buf, s.samples[s.pos:])
	s.pos += n
	if s.pos == len(s.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func playPCM(kind cueKind, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName("lampwake"))
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	src := &pcmSource{samples: samples}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(src.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("lampwake "+kind.String()+" cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play %s cue: %w", kind, err)
	}
	return nil
}

// render concatenates sweeps into mono PCM. Phase is carried across sweeps so
// a glide has no discontinuity, and each voiced sweep gets a raised-cosine fade.
func render(sweeps []sweep, volume float64) []int16 {
	var pcm []int16
	phase := 0.0
	for _, sw := range sweeps {
		n := sampleCount(sw.length)
		fade := max(1, min(n/8, cueSampleRate/250))
		for i := range n {
			if sw.fromHz <= 0 || sw.toHz <= 0 || volume <= 0 {
				pcm = append(pcm, 0)
				continue
			}
			progress := float64(i) / float64(n)
			freq := sw.fromHz + (sw.toHz-sw.fromHz)*progress
			phase += 2 * math.Pi * freq / cueSampleRate
			gain := volume * fadeGain(i, n, fade)
			pcm = append(pcm, int16(math.Round(math.Sin(phase)*gain*math.MaxInt16)))
		}
	}
	return pcm
}

// fadeGain is 0 at both ends of a sweep and 1 in the middle.
func fadeGain(i, n, fade int) float64 {
	edge := min(i, n-1-i)
	if edge >= fade {
		return 1
	}
	return 0.5 - 0.5*math.Cos(math.Pi*float64(edge)/float64(fade))
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
