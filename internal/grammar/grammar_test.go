package grammar

import (
	"strings"
	"testing"

	"github.com/rbright/lampwake/internal/catalog"
	"github.com/stretchr/testify/require"
)

var testPhrases = Phrases{Wake: "computer", Cancel: "cancel override"}

func houseGrammar(t *testing.T) (*catalog.Catalog, *Grammar) {
	t.Helper()
	c, err := catalog.House(nil)
	require.NoError(t, err)
	g, err := Build(c, testPhrases)
	require.NoError(t, err)
	return c, g
}

func TestTokenizeFoldsCaseAndDropsPunctuation(t *testing.T) {
	require.Equal(t, []string{"turn", "on", "the", "kitchen", "lights"}, Tokenize("  Turn ON, the Kitchen-lights. "))
	require.Equal(t, []string{"don't", "stop"}, Tokenize("Don't stop!"))
	require.Empty(t, Tokenize(" ?! "))
}

func TestMatchKitchenScenario(t *testing.T) {
	_, g := houseGrammar(t)

	m, ok := g.Match("Turn on the kitchen lights.")
	require.True(t, ok)
	require.Equal(t, "turn on the kitchen lights", m.Text)
	require.Equal(t, map[SlotKey]string{
		SlotAction:     catalog.TurnOnSemanticValue,
		SlotIdentifier: "KITCHEN",
		SlotSubject:    catalog.LightsSubjectSemanticValue,
	}, m.Slots)
}

func TestMatchControlPhrasesCarryNoSlots(t *testing.T) {
	_, g := houseGrammar(t)

	m, ok := g.Match("Computer")
	require.True(t, ok)
	require.Equal(t, "computer", m.Text)
	require.Empty(t, m.Slots)

	m, ok = g.Match("CANCEL override!")
	require.True(t, ok)
	require.Equal(t, "cancel override", m.Text)
	require.Empty(t, m.Slots)
}

func TestMatchRejectsUnknownUtterances(t *testing.T) {
	_, g := houseGrammar(t)

	for _, text := range []string{
		"",
		"what time is it",
		"turn on the kitchen",
		"the kitchen lights",
		"computer please",
		"turn on the kitchen lights please",
	} {
		_, ok := g.Match(text)
		require.False(t, ok, text)
	}
}

func TestMatchSlotOrderInvariance(t *testing.T) {
	_, g := houseGrammar(t)

	first, ok := g.Match("switch off the garage lamp")
	require.True(t, ok)
	second, ok := g.Match("switch off the lamp in the garage")
	require.True(t, ok)

	require.Equal(t, first.Slots, second.Slots)
	require.Equal(t, "GARAGE", first.Slots[SlotIdentifier])
	require.Equal(t, catalog.TurnOffSemanticValue, first.Slots[SlotAction])
}

func TestMatchEveryLabelInBothOrders(t *testing.T) {
	c, g := houseGrammar(t)

	// A label shared by a room and the synthetic all-lights target resolves to
	// whichever identifier is declared first.
	owner := map[string]string{}
	for _, id := range c.Identifiers() {
		for _, label := range id.Labels {
			if _, taken := owner[label]; !taken {
				owner[label] = id.SemanticValue
			}
		}
	}

	subject := c.Subject()
	for _, action := range c.Actions() {
		for _, verb := range action.Labels() {
			for label, want := range owner {
				for _, noun := range subject.Labels {
					phrases := []string{
						verb + " the " + label + " " + noun,
						verb + " the " + noun + " in the " + label,
					}
					for _, phrase := range phrases {
						m, ok := g.Match(phrase)
						require.True(t, ok, phrase)
						require.Equal(t, action.SemanticValue(), m.Slots[SlotAction], phrase)
						require.Equal(t, want, m.Slots[SlotIdentifier], phrase)
						require.Equal(t, subject.SemanticValue, m.Slots[SlotSubject], phrase)
					}
				}
			}
		}
	}
}

func TestMatchAllLightsCollectiveLabel(t *testing.T) {
	_, g := houseGrammar(t)

	m, ok := g.Match("please turn off the whole house lights")
	require.True(t, ok)
	require.Equal(t, catalog.AllLightsSemanticValue, m.Slots[SlotIdentifier])
}

func TestCommandGrammarOnlyEmitsKnownSlotKeys(t *testing.T) {
	_, g := houseGrammar(t)

	m, ok := g.Match("turn on the lights in the hedgehog room")
	require.True(t, ok)
	for k := range m.Slots {
		require.True(t, k.Valid(), string(k))
	}
}

func TestBuildCommandGrammarRequiresIdentifiersAndActions(t *testing.T) {
	noIdentifiers, err := catalog.New(nil, []catalog.Action{catalog.TurnOn(nil)}, catalog.LightsSubject())
	require.NoError(t, err)
	_, err = BuildCommandGrammar(noIdentifiers)
	require.ErrorIs(t, err, ErrEmptyGrammar)

	noActions, err := catalog.New([]catalog.Identifier{{SemanticValue: "KITCHEN", Labels: []string{"kitchen"}}}, nil, catalog.LightsSubject())
	require.NoError(t, err)
	_, err = Build(noActions, testPhrases)
	require.ErrorIs(t, err, ErrEmptyGrammar)

	_, err = BuildCommandGrammar(nil)
	require.ErrorIs(t, err, ErrEmptyGrammar)
}

func TestBuildRejectsBadPhrases(t *testing.T) {
	c, err := catalog.House(nil)
	require.NoError(t, err)

	_, err = Build(c, Phrases{Wake: "  ", Cancel: "cancel override"})
	require.ErrorIs(t, err, ErrInvalidPhrase)

	_, err = Build(c, Phrases{Wake: "computer", Cancel: ""})
	require.ErrorIs(t, err, ErrInvalidPhrase)

	_, err = Build(c, Phrases{Wake: "Computer", Cancel: "computer!"})
	require.ErrorIs(t, err, ErrInvalidPhrase)
}

func TestKeyWithoutValueCapturesWords(t *testing.T) {
	g := New(Seq(Wildcard(), Key(SlotSubject, OneOf(Words("fans"), Words("ceiling fans")))))

	m, ok := g.Match("turn on the ceiling fans")
	require.True(t, ok)
	require.Equal(t, "ceiling fans", m.Slots[SlotSubject])
}

func TestKeyPanicsOnUnknownSlot(t *testing.T) {
	require.Panics(t, func() { Key(SlotKey("COLOR"), Words("red")) })
}

func TestRenderAndVocabulary(t *testing.T) {
	_, g := houseGrammar(t)

	rendered := Render(g.Root())
	lines := strings.Split(rendered, "\n")
	require.Equal(t, `"computer"`, lines[0])
	require.Equal(t, `"cancel override"`, lines[1])
	require.Len(t, lines, 2+2*2)
	require.Contains(t, lines[2], `* <ACTION:(`)
	require.Contains(t, lines[2], `"kitchen"=KITCHEN`)

	vocab := g.Vocabulary()
	require.Contains(t, vocab, "computer")
	require.Contains(t, vocab, "cancel override")
	require.Contains(t, vocab, "hedgehog room")
	require.Contains(t, vocab, "turn on")
	require.Contains(t, vocab, "lightswitches")
	require.IsNonDecreasing(t, vocab)
	require.Equal(t, testPhrases, g.Phrases())
}
