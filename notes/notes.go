// Package notes generates release notes from conventional commit history.
//
// Commits in the release range are parsed as conventional commits and
// grouped into sections (breaking changes, features, fixes, other). The
// output is a markdown fragment suitable for a release description or a
// promotion pull request body.
package notes

import (
	"fmt"
	"strings"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	"github.com/input-output-hk/catalyst-forge-release/git"
)

// Section identifies a group of commits in the rendered notes.
type Section string

const (
	SectionBreaking Section = "Breaking Changes"
	SectionFeatures Section = "Features"
	SectionFixes    Section = "Bug Fixes"
	SectionOther    Section = "Other Changes"
)

// sectionOrder fixes the rendering order of non-empty sections.
var sectionOrder = []Section{SectionBreaking, SectionFeatures, SectionFixes, SectionOther}

// Entry is a single commit rendered into the notes.
type Entry struct {
	// Scope is the conventional commit scope, if any.
	Scope string

	// Description is the commit subject without the type prefix.
	Description string

	// Hash is the abbreviated commit hash.
	Hash string
}

// Notes holds parsed commits grouped by section.
type Notes struct {
	// Version is the tag the notes describe.
	Version string

	// Sections maps each section to its entries, newest first.
	Sections map[Section][]Entry
}

// Generator parses commit messages and assembles release notes.
type Generator struct {
	machine conventionalcommits.Machine
}

// NewGenerator creates a generator using the conventional commit grammar.
func NewGenerator() *Generator {
	return &Generator{
		machine: parser.NewMachine(
			conventionalcommits.WithTypes(conventionalcommits.TypesConventional),
			conventionalcommits.WithBestEffort(),
		),
	}
}

// Generate groups the given commits into release note sections. Commits
// whose messages do not follow the conventional format land in the
// "Other Changes" section with their first line as the description.
func (g *Generator) Generate(version string, commits []git.Commit) *Notes {
	notes := &Notes{
		Version:  version,
		Sections: make(map[Section][]Entry),
	}

	for _, commit := range commits {
		section, entry := g.classify(commit)
		notes.Sections[section] = append(notes.Sections[section], entry)
	}

	return notes
}

// classify parses one commit message and assigns it to a section.
func (g *Generator) classify(commit git.Commit) (Section, Entry) {
	entry := Entry{Hash: abbrev(commit.Hash)}

	subject := firstLine(commit.Message)
	parsed, err := g.machine.Parse([]byte(commit.Message))
	if err != nil || parsed == nil || !parsed.Ok() {
		entry.Description = subject
		return SectionOther, entry
	}

	cc, ok := parsed.(*conventionalcommits.ConventionalCommit)
	if !ok {
		entry.Description = subject
		return SectionOther, entry
	}

	entry.Description = cc.Description
	if cc.Scope != nil {
		entry.Scope = *cc.Scope
	}

	switch {
	case cc.IsBreakingChange():
		return SectionBreaking, entry
	case strings.EqualFold(cc.Type, "feat"):
		return SectionFeatures, entry
	case strings.EqualFold(cc.Type, "fix"):
		return SectionFixes, entry
	default:
		return SectionOther, entry
	}
}

// Markdown renders the notes as a markdown fragment. Empty sections are
// omitted; an empty range renders a single placeholder line.
func (n *Notes) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Release %s\n", n.Version)

	if n.empty() {
		b.WriteString("\nNo changes recorded for this release.\n")
		return b.String()
	}

	for _, section := range sectionOrder {
		entries := n.Sections[section]
		if len(entries) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n### %s\n\n", section)
		for _, entry := range entries {
			b.WriteString("- ")
			if entry.Scope != "" {
				fmt.Fprintf(&b, "**%s:** ", entry.Scope)
			}
			b.WriteString(entry.Description)
			if entry.Hash != "" {
				fmt.Fprintf(&b, " (%s)", entry.Hash)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Summary returns a one-line count per non-empty section, ordered by
// section, for log output.
func (n *Notes) Summary() string {
	parts := make([]string, 0, len(n.Sections))
	for _, section := range sectionOrder {
		if count := len(n.Sections[section]); count > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", strings.ToLower(string(section)), count))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

func (n *Notes) empty() bool {
	for _, entries := range n.Sections {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// firstLine returns the subject line of a commit message.
func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}

// abbrev shortens a commit hash to the conventional 7 characters.
func abbrev(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
