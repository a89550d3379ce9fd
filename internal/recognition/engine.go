package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/lampwake/internal/grammar"
	"golang.org/x/text/language"
)

// ErrNoProfile indicates no installed recognizer profile matches the requested language.
var ErrNoProfile = errors.New("no recognizer profile for language")

// Profile is one installed recognizer configuration.
type Profile struct {
	ID          string
	Language    string
	Description string
}

// Engine is a continuous recognizer loaded with a composed grammar.
type Engine interface {
	Profiles(ctx context.Context) ([]Profile, error)
	LoadGrammar(g *grammar.Grammar) error
	// Start begins continuous recognition. The returned channel is closed when
	// the engine stops.
	Start(ctx context.Context, profile Profile) (<-chan Event, error)
	Stop() error
}

// SelectProfile picks the profile whose language matches code, preferring an
// exact tag match over a base-language match.
func SelectProfile(profiles []Profile, code string) (Profile, error) {
	code = strings.TrimSpace(code)
	want, err := language.Parse(code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w %q: %v", ErrNoProfile, code, err)
	}
	wantBase, _ := want.Base()

	var (
		baseMatch Profile
		haveBase  bool
	)
	for _, profile := range profiles {
		tag, err := language.Parse(strings.TrimSpace(profile.Language))
		if err != nil {
			continue
		}
		if tag == want {
			return profile, nil
		}
		if base, _ := tag.Base(); base == wantBase && !haveBase {
			baseMatch, haveBase = profile, true
		}
	}
	if haveBase {
		return baseMatch, nil
	}
	return Profile{}, fmt.Errorf("%w %q", ErrNoProfile, code)
}

// Recognize matches text against g and shapes the match as an engine event.
// Unmatched text is reported with ok false and no semantics.
func Recognize(g *grammar.Grammar, text string, confidence float32) (Event, bool) {
	m, ok := g.Match(text)
	if !ok {
		return Event{Text: text, Confidence: confidence}, false
	}
	semantics := make(map[string]Semantic, len(m.Slots))
	for key, value := range m.Slots {
		semantics[string(key)] = Semantic{Value: value, Confidence: confidence}
	}
	return Event{Text: m.Text, Confidence: confidence, Semantics: semantics}, true
}
