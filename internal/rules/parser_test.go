package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/remake/internal/depstore"
)

func writeRemakefile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Remakefile")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadSingleRule(t *testing.T) {
	path := writeRemakefile(t, "out: in\n\techo hi\n")
	deps := depstore.New()

	got, err := Load(path, deps)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.False(t, r.Generic)
	assert.Equal(t, []string{"out"}, r.Targets)
	assert.Equal(t, []string{"in"}, r.Deps)
	assert.Equal(t, "echo hi\n", r.Script)

	assert.ElementsMatch(t, []string{"in"}, deps.Get("out"))
}

func TestLoadMultipleTargetsAndDeps(t *testing.T) {
	path := writeRemakefile(t, "a b: c d\n\tbuild\n")
	deps := depstore.New()

	got, err := Load(path, deps)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, []string{"a", "b"}, r.Targets)
	assert.Equal(t, []string{"c", "d"}, r.Deps)
	assert.ElementsMatch(t, []string{"c", "d"}, deps.Get("a"))
	assert.ElementsMatch(t, []string{"c", "d"}, deps.Get("b"))
}

func TestLoadGenericRuleHasNoStaticDeps(t *testing.T) {
	path := writeRemakefile(t, "%.o: %.c\n\tcc -c %.c\n")
	deps := depstore.New()

	got, err := Load(path, deps)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.True(t, r.Generic)
	assert.Equal(t, []string{"%.o"}, r.Targets)
	assert.Equal(t, []string{"%.c"}, r.Deps)
	assert.Empty(t, deps.Get("%.o"))
}

func TestLoadMultipleRulesInOrder(t *testing.T) {
	path := writeRemakefile(t, "a: b\n\tfirst\nc: d\n\tsecond\n")
	deps := depstore.New()

	got, err := Load(path, deps)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a"}, got[0].Targets)
	assert.Equal(t, "first\n", got[0].Script)
	assert.Equal(t, []string{"c"}, got[1].Targets)
	assert.Equal(t, "second\n", got[1].Script)
}

func TestLoadRuleWithoutTrailingNewlineOnLastScriptLine(t *testing.T) {
	path := writeRemakefile(t, "out: in\n\techo done")
	deps := depstore.New()

	got, err := Load(path, deps)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "echo done", got[0].Script)
}

func TestLoadMixedGenericAndPlainTargetsIsSyntaxError(t *testing.T) {
	path := writeRemakefile(t, "a %.o: x\n\tcmd\n")
	deps := depstore.New()

	_, err := Load(path, deps)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, 1, synErr.Line)
}

func TestLoadMixedGenericAndPlainDepsIsSyntaxError(t *testing.T) {
	path := writeRemakefile(t, "a.o: a.c %.c\n\tcmd\n")
	deps := depstore.New()

	_, err := Load(path, deps)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestLoadMissingRemakefile(t *testing.T) {
	dir := t.TempDir()
	deps := depstore.New()

	_, err := Load(filepath.Join(dir, "Remakefile"), deps)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMultiLineScript(t *testing.T) {
	path := writeRemakefile(t, "out: in\n\tstep1\n\tstep2\n")
	deps := depstore.New()

	got, err := Load(path, deps)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "step1\nstep2\n", got[0].Script)
}
