// Package resolver maps the leading tokens of a stage to a registered
// command or a namespace of commands.
package resolver

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MatchKind distinguishes a runnable command from a path prefix.
type MatchKind int

const (
	Leaf MatchKind = iota
	Namespace
)

func (k MatchKind) String() string {
	if k == Namespace {
		return "namespace"
	}
	return "leaf"
}

// Child is one entry below a namespace.
type Child struct {
	Segment string
	// Path is the child's full path, namespace prefix included.
	Path string
	// Summary is set when the child is itself a command.
	Summary string
}

// Match is the outcome of a successful resolution.
type Match struct {
	Kind MatchKind
	// Command is set for Leaf matches.
	Command registry.Registered
	// Matched is the number of leading tokens consumed.
	Matched int
	// Prefix is the namespace path for Namespace matches.
	Prefix   []string
	Children []Child
}

// Remaining returns the tokens after the matched command path.
func (m Match) Remaining(tokens []string) []string {
	return tokens[m.Matched:]
}

type score struct {
	length int
	rank   int
}

func (s score) beats(o score) bool {
	if s.length != o.length {
		return s.length > o.length
	}
	return s.rank > o.rank
}

// Resolve finds the command invoked by tokens.
//
// Every path and alias whose tokens lead the input is a candidate, scored by
// (length, scope rank). The highest score wins; two different commands
// sharing it are ambiguous. Without a leaf, tokens that are a strict prefix
// of a public candidate resolve to a Namespace. Anything else is not found.
func Resolve(snap *registry.Snapshot, tokens []string) (Match, error) {
	if len(tokens) == 0 {
		return Match{}, shellerrors.NewCommandNotFoundError("", "")
	}

	var (
		best    score
		winners []registry.Registered
	)
	for _, reg := range snap.All() {
		for _, cand := range reg.Descriptor.Candidates() {
			if !hasPrefix(tokens, cand) {
				continue
			}
			s := score{length: len(cand), rank: reg.Descriptor.Scope.Rank()}
			switch {
			case len(winners) == 0 || s.beats(best):
				best = s
				winners = []registry.Registered{reg}
			case s == best && !containsToken(winners, reg.Token):
				winners = append(winners, reg)
			}
		}
	}

	if len(winners) > 1 {
		paths := make([]string, len(winners))
		for i, w := range winners {
			paths[i] = w.Descriptor.CanonicalPath()
		}
		return Match{}, shellerrors.NewAmbiguousCommandError(strings.Join(tokens[:best.length], " "), paths)
	}
	if len(winners) == 1 {
		return Match{Kind: Leaf, Command: winners[0], Matched: best.length}, nil
	}

	if children := Children(snap, tokens); len(children) > 0 {
		return Match{Kind: Namespace, Matched: len(tokens), Prefix: tokens, Children: children}, nil
	}

	command := strings.Join(tokens, " ")
	return Match{}, shellerrors.NewCommandNotFoundError(command, Suggest(snap, command))
}

// Children lists the distinct next segments of public candidates strictly
// longer than prefix, sorted by segment.
func Children(snap *registry.Snapshot, prefix []string) []Child {
	seen := make(map[string]int)
	var children []Child
	for _, reg := range snap.All() {
		if reg.Descriptor.Visibility != registry.Public {
			continue
		}
		for _, cand := range reg.Descriptor.Candidates() {
			if len(cand) <= len(prefix) || !hasPrefix(cand, prefix) {
				continue
			}
			seg := cand[len(prefix)]
			summary := ""
			if len(cand) == len(prefix)+1 {
				summary = reg.Descriptor.Help.Summary
			}
			if i, ok := seen[seg]; ok {
				if children[i].Summary == "" {
					children[i].Summary = summary
				}
				continue
			}
			seen[seg] = len(children)
			path := append(append([]string{}, prefix...), seg)
			children = append(children, Child{Segment: seg, Path: strings.Join(path, " "), Summary: summary})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Segment < children[j].Segment })
	return children
}

// Suggest returns the public command or alias closest to command, or "".
// Fuzzy subsequence ranking is tried first; failing that, the candidate
// with the smallest edit distance under 40% of its length.
func Suggest(snap *registry.Snapshot, command string) string {
	var names []string
	seen := make(map[string]bool)
	for _, reg := range snap.All() {
		if reg.Descriptor.Visibility != registry.Public {
			continue
		}
		for _, cand := range reg.Descriptor.Candidates() {
			name := strings.Join(cand, " ")
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 || command == "" {
		return ""
	}

	ranks := fuzzy.RankFindFold(command, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	closest := ""
	bestRatio := 0.4
	for _, name := range names {
		dist := levenshtein.ComputeDistance(strings.ToLower(command), strings.ToLower(name))
		maxlen := len(command)
		if len(name) > maxlen {
			maxlen = len(name)
		}
		if ratio := float64(dist) / float64(maxlen); ratio < bestRatio {
			bestRatio = ratio
			closest = name
		}
	}
	return closest
}

func hasPrefix(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}
	return true
}

func containsToken(regs []registry.Registered, token registry.Token) bool {
	for _, r := range regs {
		if r.Token == token {
			return true
		}
	}
	return false
}
