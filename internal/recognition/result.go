// Package recognition defines the recognition engine boundary and normalizes
// engine events into immutable results.
package recognition

import (
	"math"
	"sort"
	"strings"

	"github.com/rbright/lampwake/internal/grammar"
)

// Semantic is one labeled value reported by an engine.
type Semantic struct {
	Value      string
	Confidence float32
}

// Event is one utterance as delivered by an engine.
type Event struct {
	Text       string
	Confidence float32
	Semantics  map[string]Semantic
}

// SlotValue is one slot of a normalized result.
type SlotValue struct {
	Value      string
	Confidence float32
}

// Result is the normalized, read-only form of an Event.
type Result struct {
	text       string
	confidence float32
	slots      map[grammar.SlotKey]SlotValue
}

// FromEvent translates an engine event. Text is trimmed, confidences are
// clamped to [0,1] and semantics outside the command slot keys are dropped.
func FromEvent(ev Event) Result {
	slots := make(map[grammar.SlotKey]SlotValue, len(ev.Semantics))
	for name, semantic := range ev.Semantics {
		key := grammar.SlotKey(strings.ToUpper(strings.TrimSpace(name)))
		if !key.Valid() {
			continue
		}
		value := strings.TrimSpace(semantic.Value)
		if value == "" {
			continue
		}
		slots[key] = SlotValue{Value: value, Confidence: clamp(semantic.Confidence)}
	}
	return Result{
		text:       strings.TrimSpace(ev.Text),
		confidence: clamp(ev.Confidence),
		slots:      slots,
	}
}

func (r Result) Text() string {
	return r.text
}

func (r Result) Confidence() float32 {
	return r.confidence
}

// Slot returns the slot stored under key, if the utterance produced it.
func (r Result) Slot(key grammar.SlotKey) (SlotValue, bool) {
	v, ok := r.slots[key]
	return v, ok
}

// Slots lists the present slot keys in sorted order.
func (r Result) Slots() []grammar.SlotKey {
	keys := make([]grammar.SlotKey, 0, len(r.slots))
	for key := range r.slots {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func clamp(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
