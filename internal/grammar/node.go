// Package grammar composes slot grammars from the catalog and matches utterances against them.
package grammar

import (
	"fmt"
	"strings"

	"github.com/rbright/lampwake/internal/catalog"
	"golang.org/x/text/cases"
)

// SlotKey names one semantic value a command grammar can produce.
type SlotKey string

const (
	SlotAction     SlotKey = "ACTION"
	SlotIdentifier SlotKey = "IDENTIFIER"
	SlotSubject    SlotKey = "SUBJECT"
)

// Valid reports whether k is one of the three command slot keys.
func (k SlotKey) Valid() bool {
	switch k {
	case SlotAction, SlotIdentifier, SlotSubject:
		return true
	default:
		return false
	}
}

// Node is one element of a composed grammar.
type Node interface {
	match(tokens []string, pos int, e env, k cont) bool
	render(b *strings.Builder)
}

// binding is an immutable slot assignment list shared across backtracking branches.
type binding struct {
	key   SlotKey
	value string
	next  *binding
}

type env struct {
	slots *binding
	value string
}

type cont func(pos int, e env) bool

type words struct {
	phrase string
	tokens []string
}

// Words matches the exact word sequence of phrase (case-insensitive, punctuation ignored).
func Words(phrase string) Node {
	return words{phrase: strings.Join(strings.Fields(phrase), " "), tokens: Tokenize(phrase)}
}

func (w words) match(tokens []string, pos int, e env, k cont) bool {
	if len(w.tokens) == 0 || pos+len(w.tokens) > len(tokens) {
		return false
	}
	for i, tok := range w.tokens {
		if tokens[pos+i] != tok {
			return false
		}
	}
	return k(pos+len(w.tokens), e)
}

func (w words) render(b *strings.Builder) {
	fmt.Fprintf(b, "%q", w.phrase)
}

type oneOf struct {
	alternatives []Node
}

// OneOf matches the first alternative that lets the rest of the grammar match.
func OneOf(alternatives ...Node) Node {
	return oneOf{alternatives: append([]Node(nil), alternatives...)}
}

func (o oneOf) match(tokens []string, pos int, e env, k cont) bool {
	for _, alt := range o.alternatives {
		if alt.match(tokens, pos, e, k) {
			return true
		}
	}
	return false
}

func (o oneOf) render(b *strings.Builder) {
	b.WriteString("(")
	for i, alt := range o.alternatives {
		if i > 0 {
			b.WriteString(" | ")
		}
		alt.render(b)
	}
	b.WriteString(")")
}

type seq struct {
	items []Node
}

// Seq matches items one after another.
func Seq(items ...Node) Node {
	return seq{items: append([]Node(nil), items...)}
}

func (s seq) match(tokens []string, pos int, e env, k cont) bool {
	return s.matchFrom(0, tokens, pos, e, k)
}

func (s seq) matchFrom(i int, tokens []string, pos int, e env, k cont) bool {
	if i == len(s.items) {
		return k(pos, e)
	}
	return s.items[i].match(tokens, pos, e, func(next int, ne env) bool {
		return s.matchFrom(i+1, tokens, next, ne, k)
	})
}

func (s seq) render(b *strings.Builder) {
	for i, item := range s.items {
		if i > 0 {
			b.WriteString(" ")
		}
		item.render(b)
	}
}

type wildcard struct{}

// Wildcard matches zero or more unconstrained words, preferring fewer.
func Wildcard() Node {
	return wildcard{}
}

func (wildcard) match(tokens []string, pos int, e env, k cont) bool {
	for end := pos; end <= len(tokens); end++ {
		if k(end, e) {
			return true
		}
	}
	return false
}

func (wildcard) render(b *strings.Builder) {
	b.WriteString("*")
}

type value struct {
	value string
	child Node
}

// Value tags a match of child with a semantic value for the enclosing Key.
func Value(semanticValue string, child Node) Node {
	return value{value: semanticValue, child: child}
}

func (v value) match(tokens []string, pos int, e env, k cont) bool {
	return v.child.match(tokens, pos, e, func(next int, ne env) bool {
		ne.value = v.value
		return k(next, ne)
	})
}

func (v value) render(b *strings.Builder) {
	v.child.render(b)
	b.WriteString("=")
	b.WriteString(v.value)
}

type key struct {
	slot  SlotKey
	child Node
}

// Key records the semantic value produced by child under slot. Only the three
// command slot keys are accepted; anything else panics at composition time.
func Key(slot SlotKey, child Node) Node {
	if !slot.Valid() {
		panic(fmt.Sprintf("grammar: unknown slot key %q", slot))
	}
	return key{slot: slot, child: child}
}

func (n key) match(tokens []string, pos int, e env, k cont) bool {
	inner := env{slots: e.slots}
	return n.child.match(tokens, pos, inner, func(next int, ne env) bool {
		v := ne.value
		if v == "" {
			v = strings.Join(tokens[pos:next], " ")
		}
		return k(next, env{slots: &binding{key: n.slot, value: v, next: ne.slots}, value: e.value})
	})
}

func (n key) render(b *strings.Builder) {
	b.WriteString("<")
	b.WriteString(string(n.slot))
	b.WriteString(":")
	n.child.render(b)
	b.WriteString(">")
}

// Tokenize case-folds text and splits it into words, dropping punctuation.
func Tokenize(text string) []string {
	folded := cases.Fold().String(text)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !catalog.IsWordRune(r)
	})
}

// Render returns a readable form of a grammar node. Top-level alternatives,
// including nested ones, are printed one per line.
func Render(n Node) string {
	lines := make([]string, 0)
	var walk func(Node)
	walk = func(n Node) {
		if alts, ok := n.(oneOf); ok {
			for _, alt := range alts.alternatives {
				walk(alt)
			}
			return
		}
		var b strings.Builder
		n.render(&b)
		lines = append(lines, b.String())
	}
	walk(n)
	return strings.Join(lines, "\n")
}
