package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

func TestParse(t *testing.T) {
	t.Run("accepts v prefix", func(t *testing.T) {
		v, err := Parse("v1.2.0")
		require.NoError(t, err)
		assert.Equal(t, "v1.2.0", v.Tag())
		assert.Equal(t, "1.2.0", v.Semver())
	})

	t.Run("accepts bare version", func(t *testing.T) {
		v, err := Parse("2.0.1")
		require.NoError(t, err)
		assert.Equal(t, "2.0.1", v.Semver())
	})

	t.Run("rejects empty tag", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidTag, errors.CodeOf(err))
	})

	t.Run("rejects non-version tag", func(t *testing.T) {
		_, err := Parse("latest")
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidTag, errors.CodeOf(err))
	})
}

func TestIsPrerelease(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"v1.2.0", false},
		{"v1.2.0-rc1", true},
		{"v1.2.0-rc.1", true},
		{"v1.2.0-alpha", true},
		{"v1.2.0-alpha.2", true},
		{"v1.2.0-beta.1", true},
		{"v0.1.0", false},
		{"3.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			v, err := Parse(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.IsPrerelease())
		})
	}
}

func TestIsPrereleaseCustomMarkers(t *testing.T) {
	// Markers apply to the raw tag, so a build-metadata style suffix can be
	// declared pre-release by configuration.
	v, err := Parse("v1.2.0+nightly")
	require.NoError(t, err)
	assert.False(t, v.IsPrerelease())
	assert.True(t, v.IsPrerelease("+nightly"))
}

func TestChannel(t *testing.T) {
	tests := []struct {
		tag  string
		want Channel
	}{
		{"v1.2.0", ChannelStable},
		{"v1.2.0-rc1", ChannelCandidate},
		{"v1.2.0-alpha.1", ChannelAlpha},
		{"v1.2.0-beta", ChannelOther},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			v, err := Parse(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Channel())
		})
	}
}

func TestPreviousStable(t *testing.T) {
	v, err := Parse("v1.2.0")
	require.NoError(t, err)

	tags := []string{"v1.0.0", "v1.1.0", "v1.1.1", "v1.2.0-rc1", "v1.3.0", "garbage", "v1.2.0"}
	assert.Equal(t, "v1.1.1", PreviousStable(v, tags))

	t.Run("no earlier stable", func(t *testing.T) {
		first, err := Parse("v0.1.0")
		require.NoError(t, err)
		assert.Equal(t, "", PreviousStable(first, []string{"v0.1.0", "v0.2.0"}))
	})
}
