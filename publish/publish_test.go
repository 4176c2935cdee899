package publish

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestValidate(t *testing.T) {
	assert.Error(t, (*Request)(nil).Validate())
	assert.Error(t, (&Request{Version: "1.0.0"}).Validate())
	assert.Error(t, (&Request{Tag: "v1.0.0"}).Validate())
	assert.NoError(t, (&Request{Tag: "v1.0.0", Version: "1.0.0"}).Validate())
}

func TestRequestEnv(t *testing.T) {
	req := &Request{Project: "hyprtool", Tag: "v1.2.0", Version: "1.2.0", CommitSHA: "abc"}

	env := req.Env()
	assert.Equal(t, "hyprtool", env["RELEASE_PROJECT"])
	assert.Equal(t, "v1.2.0", env["RELEASE_TAG"])
	assert.Equal(t, "1.2.0", env["RELEASE_VERSION"])
	assert.Equal(t, "abc", env["RELEASE_COMMIT"])
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 100))
	assert.Equal(t, "unbounded", Excerpt("unbounded", 0))

	long := strings.Repeat("line one\n", 10) + "final line"
	got := Excerpt(long, 20)
	assert.LessOrEqual(t, len(got), 20)
	assert.True(t, strings.HasSuffix(got, "final line"))
}
