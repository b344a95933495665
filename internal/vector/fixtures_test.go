package vector

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

const prjWGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// shpFixture describes a small shapefile written to disk for a test.
type shpFixture struct {
	shapeType shp.ShapeType
	fields    []shp.Field
	shapes    []shp.Shape
	rows      [][]any
	prj       string
	cpg       string
}

// write creates dir/name.shp with its .shx, .dbf and optional sidecars.
func (f shpFixture) write(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name+".shp")
	w, err := shp.Create(path, f.shapeType)
	require.NoError(t, err)
	require.NoError(t, w.SetFields(f.fields))

	for i, s := range f.shapes {
		row := w.Write(s)
		for j, v := range f.rows[i] {
			if v == nil {
				continue
			}
			require.NoError(t, w.WriteAttribute(int(row), j, v))
		}
	}
	w.Close()

	if f.prj != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".prj"), []byte(f.prj), 0o644))
	}
	if f.cpg != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".cpg"), []byte(f.cpg), 0o644))
	}
	return path
}

func pointFixture() shpFixture {
	return shpFixture{
		shapeType: shp.POINT,
		fields: []shp.Field{
			shp.NumberField("id", 6),
			shp.FloatField("temp", 10, 2),
			shp.StringField("name", 20),
		},
		shapes: []shp.Shape{
			&shp.Point{X: -122.42, Y: 37.77},
			&shp.Point{X: -121.89, Y: 37.34},
			&shp.Point{X: -120.66, Y: 35.28},
		},
		rows: [][]any{
			{1, 31.5, "alpha"},
			{2, 28.25, "beta"},
			{3, nil, "gamma"},
		},
		prj: prjWGS84,
	}
}

// zipFiles writes the named files into a zip archive under a nested folder.
func zipFiles(t *testing.T, zipPath string, files ...string) {
	t.Helper()

	out, err := os.Create(zipPath)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	for _, path := range files {
		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		fw, createErr := zw.Create("bundle/" + filepath.Base(path))
		require.NoError(t, createErr)
		_, writeErr := fw.Write(data)
		require.NoError(t, writeErr)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}
