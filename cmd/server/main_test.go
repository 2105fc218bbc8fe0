package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"popdash/internal/config"
	"popdash/internal/engine"
)

const testCSV = `Province,Region,Capital,Island Group,2000,2010,2015,2020
Cebu,Central Visayas,Cebu City,Visayas,2390000,2619000,2938000,-
Abra,Cordillera Administrative Region,Bangued,Luzon,209491,234733,241160,250985
`

func setup(t *testing.T) (string, *cobra.Command, *bytes.Buffer) {
	t.Helper()
	logger = zap.NewNop()

	dir := t.TempDir()
	cfg = config.DefaultConfig()
	cfg.DataPath = filepath.Join(dir, "population.csv")
	cfg.Charts.Width, cfg.Charts.Height = 4, 3
	require.NoError(t, os.WriteFile(cfg.DataPath, []byte(testCSV), 0o644))

	province, renderFormat, renderOut, exportOut, exportFormat = "", "", dir, "", "xlsx"

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return dir, cmd, &out
}

func TestProvincesCmd(t *testing.T) {
	_, cmd, out := setup(t)
	require.NoError(t, runProvinces(cmd, nil))
	assert.Equal(t, "Abra\nCebu\n", out.String())
}

func TestRenderCmd(t *testing.T) {
	dir, cmd, out := setup(t)
	province = "Cebu"
	renderFormat = "svg"

	require.NoError(t, runRender(cmd, nil))
	assert.Contains(t, out.String(), "Region: Central Visayas | Capital: Cebu City | Island Group: Visayas")

	for _, name := range []string{"trend.svg", "bars.svg"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(b), "<svg")
	}
}

func TestRenderCmdErrors(t *testing.T) {
	_, cmd, _ := setup(t)

	renderFormat = "gif"
	assert.Error(t, runRender(cmd, nil))

	renderFormat = "png"
	province = "Atlantis"
	assert.ErrorIs(t, runRender(cmd, nil), engine.ErrOutOfRange)

	province = ""
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")
	assert.ErrorIs(t, runRender(cmd, nil), engine.ErrLoadFailure)
}

func TestExportCmd(t *testing.T) {
	dir, cmd, out := setup(t)
	exportFormat = "arrow"
	exportOut = filepath.Join(dir, "all.arrow")

	require.NoError(t, runExport(cmd, nil))
	assert.Contains(t, out.String(), "wrote 8 rows")

	f, err := os.Open(exportOut)
	require.NoError(t, err)
	defer f.Close()
	r, err := ipc.NewReader(f)
	require.NoError(t, err)
	defer r.Release()
	require.True(t, r.Next())
	assert.EqualValues(t, 8, r.Record().NumRows())

	exportFormat = "xlsx"
	province = "Abra"
	exportOut = filepath.Join(dir, "abra.xlsx")
	require.NoError(t, runExport(cmd, nil))
	_, err = os.Stat(exportOut)
	assert.NoError(t, err)

	exportFormat = "csv"
	assert.Error(t, runExport(cmd, nil))
}

func TestConfigInitCmd(t *testing.T) {
	dir, cmd, out := setup(t)
	configPath = filepath.Join(dir, "conf", "popdash.yaml")
	dataPath = "provinces.csv"
	forceInit = false
	t.Setenv("POPDASH_DATA", "")
	t.Setenv("POPDASH_ADDR", "")
	t.Cleanup(func() { configPath, dataPath = "popdash.yaml", "" })

	require.NoError(t, runConfigInit(cmd, nil))
	assert.Contains(t, out.String(), configPath)

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "provinces.csv", loaded.DataPath)
	assert.Equal(t, config.DefaultConfig().Server, loaded.Server)

	err = runConfigInit(cmd, nil)
	assert.ErrorContains(t, err, "already exists")

	forceInit = true
	dataPath = ""
	require.NoError(t, runConfigInit(cmd, nil))
	loaded, err = config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().DataPath, loaded.DataPath)
}
