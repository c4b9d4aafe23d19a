// Package voice turns a continuous transcript stream into discrete
// cooking commands. A wake phrase opens a short window during which the
// next recognizable phrase becomes a command.
package voice

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

// Mapping binds a command kind to the phrases that trigger it.
type Mapping struct {
	Kind    domain.CommandKind
	Phrases []string
}

// DefaultMappings returns the built-in phrase table.
func DefaultMappings() []Mapping {
	return []Mapping{
		{domain.CmdNextStep, []string{"next", "next step", "go on", "move on", "continue", "done"}},
		{domain.CmdPrevStep, []string{"back", "go back", "previous", "previous step", "last step"}},
		{domain.CmdRepeat, []string{"repeat", "repeat that", "say again", "say that again", "come again"}},
		{domain.CmdReadStep, []string{"read", "read step", "read it", "read the step"}},
		{domain.CmdReadIngredients, []string{"ingredients", "read ingredients", "read the ingredients", "what do i need"}},
		{domain.CmdPause, []string{"pause", "stop talking", "be quiet", "quiet", "hold on"}},
		{domain.CmdResume, []string{"resume", "keep going", "continue reading", "go ahead"}},
		{domain.CmdSetTimer, []string{"timer", "set timer", "set a timer", "start timer", "start a timer"}},
		{domain.CmdStopTimer, []string{"stop timer", "stop the timer", "cancel timer", "cancel the timer"}},
		{domain.CmdJumpTo, []string{"go to step", "jump to step", "skip to step"}},
	}
}

// Override replaces the phrases of the kinds named in phrases (keys are
// snake_case command names). Kinds missing from phrases keep their base
// phrases.
func Override(base []Mapping, phrases map[string][]string) ([]Mapping, error) {
	out := make([]Mapping, 0, len(base))
	seen := make(map[domain.CommandKind]bool)
	byKind := make(map[domain.CommandKind][]string, len(phrases))
	for name, ps := range phrases {
		kind := domain.CommandKindFromString(name)
		if kind == domain.CmdUnknown {
			return nil, fmt.Errorf("voice command %q: %w", name, domain.ErrUnknownCommand)
		}
		byKind[kind] = ps
	}

	for _, m := range base {
		if ps, ok := byKind[m.Kind]; ok {
			m = Mapping{Kind: m.Kind, Phrases: ps}
		}
		seen[m.Kind] = true
		out = append(out, m)
	}
	for kind, ps := range byKind {
		if !seen[kind] {
			out = append(out, Mapping{Kind: kind, Phrases: ps})
		}
	}
	return out, nil
}

type phraseRule struct {
	phrase string
	words  int
	regex  *regexp.Regexp
	kind   domain.CommandKind
}

// Matcher finds the command in an utterance. The longest matching phrase
// wins, so "stop timer" beats "timer" and "go back" beats "back".
type Matcher struct {
	rules []phraseRule
}

// NewMatcher compiles a phrase table.
func NewMatcher(mappings []Mapping) (*Matcher, error) {
	m := &Matcher{}
	for _, mp := range mappings {
		if mp.Kind == domain.CmdUnknown {
			return nil, fmt.Errorf("mapping without a kind: %w", domain.ErrUnknownCommand)
		}
		for _, p := range mp.Phrases {
			p = normalize(p)
			if p == "" {
				continue
			}
			words := strings.Fields(p)
			for i := range words {
				words[i] = regexp.QuoteMeta(words[i])
			}
			re, err := regexp.Compile(`\b` + strings.Join(words, `\s+`) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile phrase %q: %w", p, err)
			}
			m.rules = append(m.rules, phraseRule{phrase: p, words: len(words), regex: re, kind: mp.Kind})
		}
	}

	sort.SliceStable(m.rules, func(i, j int) bool {
		if m.rules[i].words != m.rules[j].words {
			return m.rules[i].words > m.rules[j].words
		}
		return len(m.rules[i].phrase) > len(m.rules[j].phrase)
	})
	return m, nil
}

// MustMatcher is NewMatcher for tables known to be valid.
func MustMatcher(mappings []Mapping) *Matcher {
	m, err := NewMatcher(mappings)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the command spoken in text. Phrases that need an
// argument (a duration for timers, a step number for jumps) only match
// when the argument parses.
func (m *Matcher) Match(text string) (domain.Command, bool) {
	norm := normalize(text)
	if norm == "" {
		return nil, false
	}

	for _, r := range m.rules {
		if !r.regex.MatchString(norm) {
			continue
		}
		switch r.kind {
		case domain.CmdSetTimer:
			secs, err := ParseDuration(norm)
			if err != nil {
				continue
			}
			return domain.SetTimer{Seconds: secs}, true
		case domain.CmdJumpTo:
			loc := r.regex.FindStringIndex(norm)
			n, ok := ParseNumber(norm[loc[1]:])
			if !ok || n < 1 {
				continue
			}
			return domain.JumpTo{Step: n - 1}, true
		}

		cmd, err := domain.NewCommand(r.kind, 0)
		if err != nil {
			continue
		}
		return cmd, true
	}
	return nil, false
}

var nonWord = regexp.MustCompile(`[^a-z0-9.' ]+`)

func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, ". ")
}
