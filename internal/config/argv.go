package config

import (
	"fmt"
	"strings"
	"unicode"
)

// argvScanner splits an executor command string the way a POSIX shell splits
// words, without expansion. Quotes group, a backslash escapes one rune.
type argvScanner struct {
	argv   []string
	word   strings.Builder
	inWord bool
	quote  rune
	escape bool
}

func (s *argvScanner) endWord() {
	if !s.inWord {
		return
	}
	s.argv = append(s.argv, s.word.String())
	s.word.Reset()
	s.inWord = false
}

func (s *argvScanner) feed(r rune) {
	switch {
	case s.escape:
		s.escape = false
		s.word.WriteRune(r)
	case s.quote != 0 && r == s.quote:
		s.quote = 0
	case s.quote != 0:
		s.word.WriteRune(r)
	case r == '\\':
		s.escape = true
		s.inWord = true
	case r == '\'' || r == '"':
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.endWord()
	default:
		s.inWord = true
		s.word.WriteRune(r)
	}
}

// splitArgv parses executor.command given as a string. A blank or
// commented-out command yields no argv.
func splitArgv(command string) ([]string, error) {
	command = strings.TrimSpace(command)
	if command == "" || strings.HasPrefix(command, "#") {
		return nil, nil
	}

	var s argvScanner
	for _, r := range command {
		s.feed(r)
	}
	switch {
	case s.escape:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", command)
	case s.quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", command)
	}
	s.endWord()
	return s.argv, nil
}
