// Package catalog holds the static registry of light identifiers, actions, and subjects.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidCatalog indicates a catalog entry violates construction invariants.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Identifier is one addressable light target.
type Identifier struct {
	ID            string
	Labels        []string
	SemanticValue string
}

// Subject is the kind of thing a command addresses ("lights").
type Subject struct {
	SemanticValue string
	Labels        []string
}

// Executor is the side-effecting boundary that drives physical lights.
type Executor interface {
	Execute(ctx context.Context, action string, identifier string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(context.Context, string, string) error

func (f ExecutorFunc) Execute(ctx context.Context, action string, identifier string) error {
	return f(ctx, action, identifier)
}

// Action is one spoken verb and the effect it has on an identifier.
type Action interface {
	SemanticValue() string
	Labels() []string
	Execute(context.Context, Identifier) error
}

// Catalog is the read-only registry consumed by the grammar composer and dispatcher.
type Catalog struct {
	identifiers []Identifier
	actions     []Action
	subject     Subject

	identifierByValue map[string]int
	actionByValue     map[string]int
}

// New validates and freezes a catalog. Empty label sets and duplicate semantic
// values are configuration errors.
func New(identifiers []Identifier, actions []Action, subject Subject) (*Catalog, error) {
	c := &Catalog{
		identifiers:       make([]Identifier, 0, len(identifiers)),
		actions:           make([]Action, 0, len(actions)),
		identifierByValue: make(map[string]int, len(identifiers)),
		actionByValue:     make(map[string]int, len(actions)),
	}

	for _, id := range identifiers {
		value := strings.TrimSpace(id.SemanticValue)
		if value == "" {
			return nil, fmt.Errorf("%w: identifier %q has an empty semantic value", ErrInvalidCatalog, id.ID)
		}
		labels := cleanLabels(id.Labels)
		if len(labels) == 0 {
			return nil, fmt.Errorf("%w: identifier %q has no labels", ErrInvalidCatalog, value)
		}
		if _, dup := c.identifierByValue[value]; dup {
			return nil, fmt.Errorf("%w: duplicate identifier %q", ErrInvalidCatalog, value)
		}
		c.identifierByValue[value] = len(c.identifiers)
		c.identifiers = append(c.identifiers, Identifier{ID: id.ID, Labels: labels, SemanticValue: value})
	}

	for _, action := range actions {
		if action == nil {
			return nil, fmt.Errorf("%w: nil action", ErrInvalidCatalog)
		}
		value := strings.TrimSpace(action.SemanticValue())
		if value == "" {
			return nil, fmt.Errorf("%w: action has an empty semantic value", ErrInvalidCatalog)
		}
		if len(cleanLabels(action.Labels())) == 0 {
			return nil, fmt.Errorf("%w: action %q has no labels", ErrInvalidCatalog, value)
		}
		if _, dup := c.actionByValue[value]; dup {
			return nil, fmt.Errorf("%w: duplicate action %q", ErrInvalidCatalog, value)
		}
		c.actionByValue[value] = len(c.actions)
		c.actions = append(c.actions, action)
	}

	subjectValue := strings.TrimSpace(subject.SemanticValue)
	if subjectValue == "" {
		return nil, fmt.Errorf("%w: subject has an empty semantic value", ErrInvalidCatalog)
	}
	subjectLabels := cleanLabels(subject.Labels)
	if len(subjectLabels) == 0 {
		return nil, fmt.Errorf("%w: subject %q has no labels", ErrInvalidCatalog, subjectValue)
	}
	c.subject = Subject{SemanticValue: subjectValue, Labels: subjectLabels}

	return c, nil
}

// Identifiers returns the identifiers in declaration order.
func (c *Catalog) Identifiers() []Identifier {
	out := make([]Identifier, len(c.identifiers))
	for i, id := range c.identifiers {
		out[i] = Identifier{ID: id.ID, Labels: append([]string(nil), id.Labels...), SemanticValue: id.SemanticValue}
	}
	return out
}

// Actions returns the actions in declaration order.
func (c *Catalog) Actions() []Action {
	return append([]Action(nil), c.actions...)
}

// Subject returns the single subject this catalog handles.
func (c *Catalog) Subject() Subject {
	return Subject{SemanticValue: c.subject.SemanticValue, Labels: append([]string(nil), c.subject.Labels...)}
}

// Identifier resolves an identifier by semantic value.
func (c *Catalog) Identifier(value string) (Identifier, bool) {
	i, ok := c.identifierByValue[value]
	if !ok {
		return Identifier{}, false
	}
	return c.identifiers[i], true
}

// Action resolves an action by semantic value.
func (c *Catalog) Action(value string) (Action, bool) {
	i, ok := c.actionByValue[value]
	if !ok {
		return nil, false
	}
	return c.actions[i], true
}

// IsWordRune reports whether r is part of a spoken word. Any other rune
// separates words.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// speakable reports whether label holds at least one letter or digit.
func speakable(label string) bool {
	return strings.ContainsFunc(label, func(r rune) bool {
		return IsWordRune(r) && r != '\''
	})
}

// cleanLabels trims labels, drops ones with nothing to say, and removes exact
// duplicates.
func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.Join(strings.Fields(label), " ")
		if !speakable(label) {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
