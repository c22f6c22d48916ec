package dtensor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const meshHCL = `
mesh "training" {
  devices = ["cpu:0", "cpu:1", "cpu:2", "cpu:3"]

  dim {
    name = "batch"
    size = 2
  }
  dim {
    name = "model"
    size = 2
  }
}

mesh "serving" {
  devices = ["cpu:0", "cpu:1"]

  dim {
    name = "replica"
    size = 2
  }
}
`

func TestParseMeshConfig(t *testing.T) {
	meshes, err := ParseMeshConfig([]byte(meshHCL), "meshes.hcl")
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	training := meshes[0]
	assert.Equal(t, "training", training.Name())
	assert.Equal(t, 4, training.NumDevices())
	wantDims := []MeshDim{{Name: "batch", Size: 2}, {Name: "model", Size: 2}}
	if diff := cmp.Diff(wantDims, training.Dims()); diff != "" {
		t.Errorf("dims mismatch (-want +got):\n%s", diff)
	}

	serving := meshes[1]
	assert.Equal(t, "serving", serving.Name())
	assert.Equal(t, 2, serving.NumDevices())
}

func TestParseMeshConfig_SyntaxError(t *testing.T) {
	_, err := ParseMeshConfig([]byte(`mesh "broken" {`), "broken.hcl")
	assert.Error(t, err)
}

func TestParseMeshConfig_NoMeshes(t *testing.T) {
	_, err := ParseMeshConfig([]byte(``), "empty.hcl")
	assert.Error(t, err)
}

func TestParseMeshConfig_InvalidTopology(t *testing.T) {
	src := `
mesh "bad" {
  devices = ["cpu:0"]

  dim {
    name = "batch"
    size = 2
  }
}
`
	_, err := ParseMeshConfig([]byte(src), "bad.hcl")
	assert.Error(t, err)
}

func TestLoadMeshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meshes.hcl")
	require.NoError(t, os.WriteFile(path, []byte(meshHCL), 0o644))

	meshes, err := LoadMeshFile(path)
	require.NoError(t, err)
	assert.Len(t, meshes, 2)

	_, err = LoadMeshFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
