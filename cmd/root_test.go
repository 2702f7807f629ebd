package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := RootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "serve"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, run.Flags().Lookup("force"))
}

func TestRunCommand_RequiresImportType(t *testing.T) {
	root := RootCommand()
	root.SetArgs([]string{"run"})
	root.SetOut(os.Stderr)
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestInitialize_MissingPolygons(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "permits.db") +
		"\ndownload:\n  dir: " + filepath.Join(dir, "dl") +
		"\nregions:\n  geojson_path: " + filepath.Join(dir, "missing.geojson") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	a := &app{}
	err := a.initialize(t.Context(), cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region polygons")
	require.NotNil(t, a.db)
	assert.NoError(t, a.db.Close())
}
