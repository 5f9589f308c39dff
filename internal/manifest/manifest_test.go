package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `# pinned application dependencies
SQLAlchemy==1.4.41
requests>=2.28
feedparser~=6.0.10
uvicorn[standard]==0.18.3

mediacloud-metadata @ https://example.org/pkgs/metadata-1.2.0.tar.gz
git+https://github.com/mediacloud/story-tools@v2.1#egg=story_tools
sentry-sdk   # trailing comment
`

func parseSample(t *testing.T) *Manifest {
	t.Helper()
	m, err := Parse(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	return m
}

func TestParseCountsAndOrder(t *testing.T) {
	m := parseSample(t)
	reqs := m.Requirements()
	require.Len(t, reqs, 7)
	assert.Equal(t, "SQLAlchemy", reqs[0].Name)
	assert.Equal(t, "sentry-sdk", reqs[6].Name)
}

func TestParsePinnedVersion(t *testing.T) {
	m := parseSample(t)
	req, ok := m.Lookup("sqlalchemy")
	require.True(t, ok)
	assert.Equal(t, "==", req.Constraint)
	assert.Equal(t, "1.4.41", req.Version)
}

func TestParseConstraintOperators(t *testing.T) {
	m := parseSample(t)

	req, ok := m.Lookup("requests")
	require.True(t, ok)
	assert.Equal(t, ">=", req.Constraint)
	assert.Equal(t, "2.28", req.Version)

	req, ok = m.Lookup("feedparser")
	require.True(t, ok)
	assert.Equal(t, "~=", req.Constraint)
	assert.Equal(t, "6.0.10", req.Version)
}

func TestParseDirectURLReference(t *testing.T) {
	m := parseSample(t)
	req, ok := m.Lookup("mediacloud-metadata")
	require.True(t, ok)
	assert.Equal(t, "https://example.org/pkgs/metadata-1.2.0.tar.gz", req.SourceURL)
	assert.Empty(t, req.Constraint)
}

func TestParseVCSURLWithEggFragment(t *testing.T) {
	m := parseSample(t)
	req, ok := m.Lookup("story-tools")
	require.True(t, ok)
	assert.Equal(t, "story_tools", req.Name)
	assert.True(t, strings.HasPrefix(req.SourceURL, "git+https://"))
}

func TestParseUnconstrainedRequirement(t *testing.T) {
	m := parseSample(t)
	req, ok := m.Lookup("sentry-sdk")
	require.True(t, ok)
	assert.Empty(t, req.Constraint)
	assert.Empty(t, req.SourceURL)
}

func TestCanonicalNameFoldsCase(t *testing.T) {
	assert.Equal(t, "story-tools", CanonicalName("Story_Tools"))
}

func TestStringRoundTripsCanonicalForms(t *testing.T) {
	cases := []string{
		"SQLAlchemy==1.4.41",
		"requests>=2.28",
		"sentry-sdk",
		"mediacloud-metadata @ https://example.org/pkgs/metadata-1.2.0.tar.gz",
	}
	for _, spec := range cases {
		m, err := Parse(strings.NewReader(spec + "\n"))
		require.NoError(t, err)
		require.Len(t, m.Requirements(), 1)
		assert.Equal(t, spec, m.Requirements()[0].String())
	}
}

func TestParseRejectsDanglingConstraint(t *testing.T) {
	_, err := Parse(strings.NewReader("requests==\n"))
	require.Error(t, err)
}
