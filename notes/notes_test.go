package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/git"
)

func testCommits() []git.Commit {
	return []git.Commit{
		{Hash: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Message: "feat(daemon): add socket activation"},
		{Hash: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Message: "fix: handle empty tag list"},
		{Hash: "cccccccccccccccccccccccccccccccccccccccc", Message: "feat!: drop legacy config format"},
		{Hash: "dddddddddddddddddddddddddddddddddddddddd", Message: "chore: bump dependencies"},
		{Hash: "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", Message: "update readme without any prefix"},
	}
}

func TestGenerateGroupsBySection(t *testing.T) {
	notes := NewGenerator().Generate("v1.2.0", testCommits())

	require.Len(t, notes.Sections[SectionFeatures], 1)
	assert.Equal(t, "add socket activation", notes.Sections[SectionFeatures][0].Description)
	assert.Equal(t, "daemon", notes.Sections[SectionFeatures][0].Scope)

	require.Len(t, notes.Sections[SectionFixes], 1)
	assert.Equal(t, "handle empty tag list", notes.Sections[SectionFixes][0].Description)

	require.Len(t, notes.Sections[SectionBreaking], 1)
	assert.Equal(t, "drop legacy config format", notes.Sections[SectionBreaking][0].Description)

	// chore and the non-conforming message both fall through to other.
	require.Len(t, notes.Sections[SectionOther], 2)
}

func TestGenerateNonConformingMessage(t *testing.T) {
	commits := []git.Commit{
		{Hash: "ffffffffff", Message: "merged some stuff\n\nlonger body here"},
	}

	notes := NewGenerator().Generate("v1.0.0", commits)

	require.Len(t, notes.Sections[SectionOther], 1)
	entry := notes.Sections[SectionOther][0]
	assert.Equal(t, "merged some stuff", entry.Description)
	assert.Equal(t, "fffffff", entry.Hash)
}

func TestMarkdownRendering(t *testing.T) {
	md := NewGenerator().Generate("v1.2.0", testCommits()).Markdown()

	assert.True(t, strings.HasPrefix(md, "## Release v1.2.0\n"))
	assert.Contains(t, md, "### Breaking Changes")
	assert.Contains(t, md, "### Features")
	assert.Contains(t, md, "- **daemon:** add socket activation (aaaaaaa)")
	assert.Contains(t, md, "- handle empty tag list (bbbbbbb)")

	// Breaking changes render before features.
	assert.Less(t, strings.Index(md, "### Breaking Changes"), strings.Index(md, "### Features"))
}

func TestMarkdownEmptyRange(t *testing.T) {
	md := NewGenerator().Generate("v1.0.0", nil).Markdown()

	assert.Contains(t, md, "## Release v1.0.0")
	assert.Contains(t, md, "No changes recorded for this release.")
}

func TestSummary(t *testing.T) {
	notes := NewGenerator().Generate("v1.2.0", testCommits())
	summary := notes.Summary()

	assert.Contains(t, summary, "features: 1")
	assert.Contains(t, summary, "bug fixes: 1")
	assert.Contains(t, summary, "breaking changes: 1")

	empty := NewGenerator().Generate("v1.0.0", nil)
	assert.Equal(t, "no changes", empty.Summary())
}
