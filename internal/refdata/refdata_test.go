package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
subjects:
  - id: hamilton
    title: Hamilton
    aliases: ["Hamilton: An American Musical"]
  - id: moulin-rouge
    title: Moulin Rouge!
    aliases: ["Moulin Rouge! The Musical"]
outlets:
  - canonical: The New York Times
    aliases: ["NYT", "NY Times"]
critics:
  - canonical: Jesse Green
venues:
  - Richard Rodgers Theatre
  - Al Hirschfeld Theatre
`

func testDict(t *testing.T) *Dictionary {
	t.Helper()
	d, err := Parse([]byte(testYAML))
	require.NoError(t, err)
	return d
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, d.Subjects(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveSubject(t *testing.T) {
	d := testDict(t)

	id, ok := d.ResolveSubject("Hamilton")
	require.True(t, ok)
	assert.Equal(t, "hamilton", id)

	// Aliases and case folding both resolve.
	id, ok = d.ResolveSubject("hamilton: an american musical")
	require.True(t, ok)
	assert.Equal(t, "hamilton", id)

	id, ok = d.ResolveSubject("  MOULIN ROUGE!  ")
	require.True(t, ok)
	assert.Equal(t, "moulin-rouge", id)

	_, ok = d.ResolveSubject("Cats")
	assert.False(t, ok)
}

func TestSubjectTitle(t *testing.T) {
	d := testDict(t)

	title, ok := d.SubjectTitle("hamilton")
	require.True(t, ok)
	assert.Equal(t, "Hamilton", title)

	_, ok = d.SubjectTitle("cats")
	assert.False(t, ok)
}

func TestCanonicalOutletAndCritic(t *testing.T) {
	d := testDict(t)

	name, ok := d.CanonicalOutlet("nyt")
	require.True(t, ok)
	assert.Equal(t, "The New York Times", name)

	name, ok = d.CanonicalCritic("JESSE GREEN")
	require.True(t, ok)
	assert.Equal(t, "Jesse Green", name)

	_, ok = d.CanonicalOutlet("The Daily Prophet")
	assert.False(t, ok)
}

func TestValidVenue(t *testing.T) {
	d := testDict(t)

	assert.True(t, d.ValidVenue("Richard Rodgers Theatre"))
	assert.True(t, d.ValidVenue("al hirschfeld theatre"))
	assert.False(t, d.ValidVenue("Madison Square Garden"))
}

func TestMentionedSubjects(t *testing.T) {
	d := testDict(t)

	text := "Tickets for Hamilton and Moulin Rouge! The Musical are on sale now."

	ids := d.MentionedSubjects(text, "hamilton")
	assert.Equal(t, []string{"moulin-rouge"}, ids)

	ids = d.MentionedSubjects(text, "")
	assert.ElementsMatch(t, []string{"hamilton", "moulin-rouge"}, ids)

	assert.Empty(t, d.MentionedSubjects("An unrelated gardening column.", "hamilton"))
}

func TestParseRejectsIncompleteSubject(t *testing.T) {
	_, err := Parse([]byte("subjects:\n  - id: broken\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("subjects: ["))
	assert.Error(t, err)
}
