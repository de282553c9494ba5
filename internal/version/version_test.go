package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuilt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuilt })

	Version, GitSHA, BuildTime = "1.2.3", "abc1234", "2026-01-02T03:04:05Z"
	assert.Equal(t, "topomap 1.2.3 (commit abc1234, built 2026-01-02T03:04:05Z)", String())
}
