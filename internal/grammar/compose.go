package grammar

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rbright/lampwake/internal/catalog"
)

var (
	// ErrEmptyGrammar indicates the catalog cannot produce a command grammar.
	ErrEmptyGrammar = errors.New("cannot build command grammar")
	// ErrInvalidPhrase indicates a blank wake or cancel phrase.
	ErrInvalidPhrase = errors.New("invalid control phrase")
)

// Phrases are the fixed control utterances combined with the command grammar.
type Phrases struct {
	Wake   string
	Cancel string
}

// Grammar is the composed, matchable grammar handed to a recognition engine.
type Grammar struct {
	root    Node
	phrases Phrases
}

// Match is one successful full-utterance match.
type Match struct {
	Text  string
	Slots map[SlotKey]string
}

// New wraps an arbitrary root node. Build uses it for the composed grammar;
// the result has no wake or cancel phrases of its own.
func New(root Node) *Grammar {
	return &Grammar{root: root}
}

// labelChoices builds a choice over labels, each tagged with semanticValue.
func labelChoices(labels []string, semanticValue string) Node {
	alts := make([]Node, 0, len(labels))
	for _, label := range labels {
		alts = append(alts, Value(semanticValue, Words(label)))
	}
	return OneOf(alts...)
}

// IdentifierChoices unions one choice node per identifier.
func IdentifierChoices(identifiers []catalog.Identifier) Node {
	alts := make([]Node, 0, len(identifiers))
	for _, id := range identifiers {
		alts = append(alts, labelChoices(id.Labels, id.SemanticValue))
	}
	return OneOf(alts...)
}

// ActionChoices accepts any label of action tagged with its semantic value.
func ActionChoices(action catalog.Action) Node {
	return labelChoices(action.Labels(), action.SemanticValue())
}

// SubjectChoices accepts any label of subject tagged with its semantic value.
func SubjectChoices(subject catalog.Subject) Node {
	return labelChoices(subject.Labels, subject.SemanticValue)
}

// BuildCommandGrammar composes both slot orderings for every catalog action:
//
//	* ACTION * IDENTIFIER * SUBJECT
//	* ACTION * SUBJECT * IDENTIFIER
func BuildCommandGrammar(c *catalog.Catalog) (Node, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrEmptyGrammar)
	}
	identifiers := c.Identifiers()
	if len(identifiers) == 0 {
		return nil, fmt.Errorf("%w: catalog has no identifiers", ErrEmptyGrammar)
	}
	actions := c.Actions()
	if len(actions) == 0 {
		return nil, fmt.Errorf("%w: catalog has no actions", ErrEmptyGrammar)
	}

	identifier := Key(SlotIdentifier, IdentifierChoices(identifiers))
	subject := Key(SlotSubject, SubjectChoices(c.Subject()))

	templates := make([]Node, 0, 2*len(actions))
	for _, action := range actions {
		verb := Key(SlotAction, ActionChoices(action))
		templates = append(templates,
			Seq(Wildcard(), verb, Wildcard(), identifier, Wildcard(), subject),
			Seq(Wildcard(), verb, Wildcard(), subject, Wildcard(), identifier),
		)
	}
	return OneOf(templates...), nil
}

// Build unions the wake phrase, the cancel phrase, and the command grammar.
func Build(c *catalog.Catalog, phrases Phrases) (*Grammar, error) {
	if len(Tokenize(phrases.Wake)) == 0 {
		return nil, fmt.Errorf("%w: wake phrase is empty", ErrInvalidPhrase)
	}
	if len(Tokenize(phrases.Cancel)) == 0 {
		return nil, fmt.Errorf("%w: cancel phrase is empty", ErrInvalidPhrase)
	}
	if strings.Join(Tokenize(phrases.Wake), " ") == strings.Join(Tokenize(phrases.Cancel), " ") {
		return nil, fmt.Errorf("%w: wake and cancel phrases are identical", ErrInvalidPhrase)
	}

	commands, err := BuildCommandGrammar(c)
	if err != nil {
		return nil, err
	}

	g := New(OneOf(Words(phrases.Wake), Words(phrases.Cancel), commands))
	g.phrases = phrases
	return g, nil
}

// Root returns the composed root node.
func (g *Grammar) Root() Node {
	return g.root
}

// Phrases returns the control phrases the grammar was built with.
func (g *Grammar) Phrases() Phrases {
	return g.phrases
}

// Match parses a whole utterance. The first successful parse in declaration
// order wins.
func (g *Grammar) Match(text string) (Match, bool) {
	if g == nil || g.root == nil {
		return Match{}, false
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Match{}, false
	}

	var found env
	ok := g.root.match(tokens, 0, env{}, func(pos int, e env) bool {
		if pos != len(tokens) {
			return false
		}
		found = e
		return true
	})
	if !ok {
		return Match{}, false
	}

	slots := make(map[SlotKey]string)
	for b := found.slots; b != nil; b = b.next {
		if _, exists := slots[b.key]; !exists {
			slots[b.key] = b.value
		}
	}
	return Match{Text: strings.Join(tokens, " "), Slots: slots}, true
}

// Vocabulary lists every literal phrase in the grammar, sorted and deduplicated.
func (g *Grammar) Vocabulary() []string {
	if g == nil || g.root == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case words:
			if n.phrase != "" {
				seen[n.phrase] = struct{}{}
			}
		case oneOf:
			for _, alt := range n.alternatives {
				walk(alt)
			}
		case seq:
			for _, item := range n.items {
				walk(item)
			}
		case value:
			walk(n.child)
		case key:
			walk(n.child)
		}
	}
	walk(g.root)

	out := make([]string, 0, len(seen))
	for phrase := range seen {
		out = append(out, phrase)
	}
	sort.Strings(out)
	return out
}
