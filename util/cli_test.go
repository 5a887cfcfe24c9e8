package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoArgsIsAnError(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestParse_UnknownActionIsAnError(t *testing.T) {
	_, err := Parse([]string{"bogus", "--db=x"})
	assert.Error(t, err)
}

func TestParse_HelpNeedsNoFlags(t *testing.T) {
	a, err := Parse([]string{"help"})
	require.NoError(t, err)
	assert.Equal(t, "help", a.Action)
}

func TestParse_CreateRequiresDB(t *testing.T) {
	_, err := Parse([]string{"create"})
	assert.Error(t, err)

	a, err := Parse([]string{"create", "--db=/tmp/photo_db.json", "--algorithm=blake3"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/photo_db.json", a.Flag("db"))
	assert.Equal(t, "blake3", a.Flag("algorithm"))
}

func TestParse_IndexRequiresRootPath(t *testing.T) {
	_, err := Parse([]string{"index", "--db=/tmp/db.json"})
	assert.Error(t, err)
}

func TestParse_IndexResolvesPositionalsToAbsolutePaths(t *testing.T) {
	a, err := Parse([]string{"index", "--db=/tmp/db.json", "relative/dir"})
	require.NoError(t, err)
	require.Len(t, a.Positional(), 1)
	assert.True(t, filepath.IsAbs(a.Positional()[0]))
}

func TestParse_ImportRequiresDestination(t *testing.T) {
	_, err := Parse([]string{"import", "--db=/tmp/db.json", "/some/root"})
	assert.Error(t, err)

	a, err := Parse([]string{"import", "--db=/tmp/db.json", "--destination=/dest", "/some/root"})
	require.NoError(t, err)
	assert.Equal(t, "/dest", a.Flag("destination"))
}

func TestParse_CollectVerifyCleanRequireDestination(t *testing.T) {
	for _, action := range []string{"collect", "verify", "clean"} {
		_, err := Parse([]string{action, "--db=/tmp/db.json"})
		assert.Errorf(t, err, "%s should require --destination", action)

		a, err := Parse([]string{action, "--db=/tmp/db.json", "--destination=/dest"})
		assert.NoErrorf(t, err, "%s with --destination should parse", action)
		assert.Equal(t, "/dest", a.Flag("destination"))
	}
}

func TestParse_StatsOnlyRequiresDB(t *testing.T) {
	a, err := Parse([]string{"stats", "--db=/tmp/db.json"})
	require.NoError(t, err)
	assert.Equal(t, "stats", a.Action)
}

func TestParse_RepeatableExcludeAccumulates(t *testing.T) {
	a, err := Parse([]string{"index", "--db=/tmp/db.json", "--exclude=*.db", "--exclude=*.tmp", "/root"})
	require.NoError(t, err)
	assert.Equal(t, []string{"*.db", "*.tmp"}, a.MultiFlag("exclude"))
}

func TestParse_BoolFlagRecognizesBareAndExplicitForms(t *testing.T) {
	a, err := Parse([]string{"index", "--db=/tmp/db.json", "--skip-existing", "/root"})
	require.NoError(t, err)
	assert.True(t, a.Bool("skip-existing"))

	a2, err := Parse([]string{"clean", "--db=/tmp/db.json", "--destination=/dest", "--dry-run=false"})
	require.NoError(t, err)
	assert.False(t, a2.Bool("dry-run"))
}

func TestParse_FlagOrFallsBackToDefault(t *testing.T) {
	a, err := Parse([]string{"create", "--db=/tmp/db.json"})
	require.NoError(t, err)
	assert.Equal(t, "sha256", a.FlagOr("algorithm", "sha256"))
}
