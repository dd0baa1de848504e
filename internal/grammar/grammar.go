// Package grammar parses capturable-executable names.
//
// A capturable executable encodes its processing pipeline in its name:
//
//	<basename>.[<pre>].<nature>[+].[<post>].<domain>
//
// Both bracket groups are optional. `chart.[fetch,clean].svg.[minify].py`
// declares a Python sink producing SVG, preceded by two pre-stages and
// followed by one post-stage. A trailing + on the nature marks the sink as
// multi-output (it emits NDJSON file records rather than one file).
package grammar

import (
	"regexp"
	"strings"
	"unicode"
)

// ParsedName is the structured form of a name that matched the grammar.
// All fields are set by Parse and never mutated afterwards.
type ParsedName struct {
	Basename   string
	Nature     string
	IsMulti    bool
	Domain     string
	PreStages  []string
	PostStages []string
}

// NatureTag returns the nature token as it should appear in the child
// environment: with a trailing + when the name is multi-output.
func (p ParsedName) NatureTag() string {
	if p.IsMulti {
		return p.Nature + "+"
	}
	return p.Nature
}

// nameRE anchors the whole grammar against the full name. Bracket groups
// require at least one non-] character; whether that content yields any
// stage tokens is checked separately after splitting.
var nameRE = regexp.MustCompile(
	`^([A-Za-z0-9_-]+)` + // basename (no dots)
		`(?:\.\[([^\]]+)\])?` + // optional pre-stage group
		`\.([A-Za-z0-9][A-Za-z0-9_-]*)` + // nature
		`(\+)?` + // multi-output marker
		`(?:\.\[([^\]]+)\])?` + // optional post-stage group
		`\.([A-Za-z0-9][A-Za-z0-9_-]*)$`) // domain

// Parse matches name against the grammar. The second return is false when
// the name does not match; a non-matching name is not an error, it is
// simply not a capturable executable.
func Parse(name string) (ParsedName, bool) {
	m := nameRE.FindStringSubmatch(name)
	if m == nil {
		return ParsedName{}, false
	}

	p := ParsedName{
		Basename: m[1],
		Nature:   m[3],
		IsMulti:  m[4] == "+",
		Domain:   m[6],
	}

	// A bracket that is present but contributes no tokens (empty or
	// whitespace/comma-only) invalidates the whole name.
	var ok bool
	if p.PreStages, ok = splitStages(m[2]); !ok {
		return ParsedName{}, false
	}
	if p.PostStages, ok = splitStages(m[5]); !ok {
		return ParsedName{}, false
	}
	return p, true
}

// splitStages splits bracket content on any mix of commas and whitespace.
// Returns ok=false when the bracket was present but produced no tokens.
func splitStages(group string) ([]string, bool) {
	if group == "" {
		// Bracket absent: the regexp leaves the submatch empty.
		return nil, true
	}
	tokens := strings.FieldsFunc(group, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(tokens) == 0 {
		return nil, false
	}
	return tokens, true
}
