package adapters

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysetupinfo/internal/shared"
	"pysetupinfo/internal/testutil"
	"pysetupinfo/internal/types"
)

func TestPyprojectAdapter_ReadBuildSystem(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    types.BuildSystem
	}{
		{
			name:    "missing table uses defaults",
			content: "[tool.black]\nline-length = 88\n",
			want: types.BuildSystem{
				Requires:     types.DefaultBuildRequires(),
				BuildBackend: types.DefaultBuildBackend,
			},
		},
		{
			name:    "declared backend",
			content: "[build-system]\nrequires = [\"flit_core>=3.2\"]\nbuild-backend = \"flit_core.buildapi\"\n",
			want: types.BuildSystem{
				Requires:     []string{"flit_core>=3.2"},
				BuildBackend: "flit_core.buildapi",
			},
		},
		{
			name:    "requires without backend",
			content: "[build-system]\nrequires = [\"setuptools>=61\", \"wheel\"]\n",
			want: types.BuildSystem{
				Requires:     []string{"setuptools>=61", "wheel"},
				BuildBackend: types.DefaultBuildBackend,
			},
		},
		{
			name:    "in-tree backend",
			content: "[build-system]\nrequires = []\nbuild-backend = \"backend\"\nbackend-path = [\"_build\"]\n",
			want: types.BuildSystem{
				Requires:     []string{},
				BuildBackend: "backend",
				BackendPath:  []string{"_build"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			testutil.WriteTree(t, root, map[string]string{"pyproject.toml": tt.content})
			got, err := NewPyprojectAdapter().ReadBuildSystem(filepath.Join(root, "pyproject.toml"))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected build system (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPyprojectAdapter_MissingFileUsesDefaults(t *testing.T) {
	got, err := NewPyprojectAdapter().ReadBuildSystem(filepath.Join(t.TempDir(), "pyproject.toml"))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultBuildBackend, got.BuildBackend)
	assert.Equal(t, types.DefaultBuildRequires(), got.Requires)
}

func TestPyprojectAdapter_InvalidTomlIsParseError(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"pyproject.toml": "[build-system\nrequires = ["})
	_, err := NewPyprojectAdapter().ReadBuildSystem(filepath.Join(root, "pyproject.toml"))
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindParse), "got %v", err)
}

func TestPyprojectAdapter_ReadProject(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"pyproject.toml": `[project]
name = "Demo.Pkg"
version = "0.4.0"
requires-python = ">=3.9"
dynamic = ["readme"]
dependencies = [
  "httpx>=0.24",
  "tomli; python_version < '3.11'",
]

[project.optional-dependencies]
cli = ["rich"]
docs = []
`})
	partial, ok, err := NewPyprojectAdapter().ReadProject(filepath.Join(root, "pyproject.toml"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.MetadataSourcePyproject, partial.Source)
	require.NotNil(t, partial.Name)
	assert.Equal(t, "Demo.Pkg", *partial.Name)
	require.NotNil(t, partial.Version)
	assert.Equal(t, "0.4.0", *partial.Version)
	require.NotNil(t, partial.PythonRequires)
	assert.Equal(t, ">=3.9", *partial.PythonRequires)
	assert.Equal(t, []types.Requirement{
		{Name: "httpx", Specifier: ">=0.24"},
		{Name: "tomli", Specifier: `; python_version < "3.11"`},
	}, partial.Requires)
	require.NotNil(t, partial.Extras)
	assert.Equal(t, []string{"cli", "docs"}, partial.Extras.Names())
	docs, _ := partial.Extras.Get("docs")
	assert.Equal(t, 0, docs.Requirements.Len())
}

func TestPyprojectAdapter_ReadProjectHonorsDynamic(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"pyproject.toml": `[project]
name = "demo"
dynamic = ["version", "dependencies"]
`})
	partial, ok, err := NewPyprojectAdapter().ReadProject(filepath.Join(root, "pyproject.toml"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, partial.Name)
	assert.Nil(t, partial.Version)
	assert.Nil(t, partial.Requires)
}

func TestPyprojectAdapter_ReadProjectWithoutTable(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"pyproject.toml": "[build-system]\nrequires = []\n"})
	_, ok, err := NewPyprojectAdapter().ReadProject(filepath.Join(root, "pyproject.toml"))
	require.NoError(t, err)
	assert.False(t, ok)
}
