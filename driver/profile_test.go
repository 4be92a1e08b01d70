package driver

import (
	"os"
	"path/filepath"
	"testing"

	"dcc/common"
	"dcc/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	report.InitReporter(report.LogLevelSilent)
	os.Exit(m.Run())
}

func TestDefaultProfile(t *testing.T) {
	prof := DefaultProfile()

	assert.Equal(t, "default", prof.Name)
	assert.Equal(t, []string{common.DefaultTriple}, prof.Targets)
	assert.Equal(t, ".", prof.OutputDir)
	assert.Empty(t, prof.Entry)
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), common.DCCProfileFileName)
	text := `
name = "release"
dcc-version = "` + common.DCCVersion + `"
targets = ["x86_64", "aarch64"]
output-dir = "out"
entry = "main"
`
	require.NoError(t, os.WriteFile(path, []byte(text), 0o666))

	prof, ok := LoadProfile(path)
	require.True(t, ok)

	assert.Equal(t, "release", prof.Name)
	assert.Equal(t, []string{"x86_64", "aarch64"}, prof.Targets)
	assert.Equal(t, "out", prof.OutputDir)
	assert.Equal(t, "main", prof.Entry)
}

func TestValidateProfileDefaultsOutputDir(t *testing.T) {
	prof, ok := validateProfile("dcc.toml", &tomlProfile{
		Name:    "minimal",
		Targets: []string{"llvm"},
	})
	require.True(t, ok)
	assert.Equal(t, ".", prof.OutputDir)
}

func TestOutputPath(t *testing.T) {
	path := outputPath("out", filepath.Join("src", "unit.dcir"), "x86_64")
	assert.Equal(t, filepath.Join("out", "unit.x86_64.s"), path)
}
