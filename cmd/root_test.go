package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sustainfire/internal/dashboard"
	"github.com/sells-group/sustainfire/internal/scorer"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "score", "model"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "sustainfire", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestModelCommand_HasInspect(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"model", "inspect"})
	require.NoError(t, err)
	assert.Equal(t, "inspect", cmd.Name())
	assert.NotNil(t, modelInspectCmd.Flags().Lookup("path"))
}

func TestScoreCommand_RequiresPath(t *testing.T) {
	assert.Error(t, scoreCmd.Args(scoreCmd, nil))
	assert.NoError(t, scoreCmd.Args(scoreCmd, []string{"fires.shp"}))
}

func TestFormatResult(t *testing.T) {
	res := &dashboard.Result{
		Path:  "fires.geojson",
		State: dashboard.InputReady,
		Rows:  2,
		Preview: dashboard.Preview{
			Columns: []string{"temp", "geometry"},
			Rows:    [][]string{{"31.5", "POINT (-120 38)"}, {"22", "POINT (-121 37)"}},
		},
		Predictions: []int{3, 1},
		Map:         &dashboard.MapLayer{Kind: dashboard.LayerHeatmap, GeomType: "Point"},
		CenterLat:   37.5,
		CenterLon:   -120.5,
		Summary:     []dashboard.Bucket{{Level: 1, Count: 1}, {Level: 3, Count: 1}},
	}

	var buf bytes.Buffer
	require.NoError(t, formatResult(&buf, res))

	out := buf.String()
	assert.Contains(t, out, "warning: no saved model found")
	assert.Contains(t, out, "Loaded 2 features from fires.geojson")
	assert.Contains(t, out, "POINT (-120 38)")
	assert.Contains(t, out, "heatmap (Point)")
	assert.Contains(t, out, "LEVEL")
}

func TestFormatResult_InvalidInput(t *testing.T) {
	var buf bytes.Buffer
	err := formatResult(&buf, &dashboard.Result{Path: "nope.shp", State: dashboard.InputMissing, ModelLoaded: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid path")
	assert.Empty(t, buf.String())

	err = formatResult(&buf, &dashboard.Result{State: dashboard.InputIdle, ModelLoaded: true})
	assert.Error(t, err)
}

func TestFormatForest(t *testing.T) {
	f := &scorer.Forest{
		Name:     "fire-rf",
		Features: []string{"temp", "humidity"},
		Classes:  []int{0, 1, 2, 3},
		Trees:    []scorer.Tree{{Nodes: make([]scorer.Node, 3)}, {Nodes: make([]scorer.Node, 5)}},
	}

	var buf bytes.Buffer
	formatForest(&buf, "model_fire_rf.json", f)

	out := buf.String()
	assert.Contains(t, out, "fire-rf")
	assert.Contains(t, out, "2 temp, humidity")
	assert.Contains(t, out, "[0 1 2 3]")
	assert.Contains(t, out, "2 (8 nodes)")
}
