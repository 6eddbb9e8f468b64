package longform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptTemplate(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "prompt.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("prompt: |\n  Split carefully.\n"), 0644))

	mdPath := filepath.Join(dir, "prompt.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("# Split carefully\n"), 0644))

	emptyYAMLPath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(emptyYAMLPath, []byte("title: no prompt here\n"), 0644))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "empty path means no override", path: "", want: ""},
		{name: "yaml prompt key", path: yamlPath, want: "Split carefully.\n"},
		{name: "markdown used verbatim", path: mdPath, want: "# Split carefully\n"},
		{name: "yaml without prompt key", path: emptyYAMLPath, wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "missing.md"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadPromptTemplate(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
