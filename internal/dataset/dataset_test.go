package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCOCO = `{
  "images": [
    {"id": 1, "file_name": "a.png", "width": 64, "height": 48},
    {"id": 2, "file_name": "b.png", "width": 64, "height": 48}
  ],
  "annotations": [
    {"id": 10, "image_id": 1, "category_id": 2},
    {"id": 11, "image_id": 1, "category_id": 1},
    {"id": 12, "image_id": 2, "category_id": 2}
  ],
  "categories": [
    {"id": 2, "name": "mitochondria"},
    {"id": 1, "name": "cristae"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCOCO_Metadata(t *testing.T) {
	path := writeFile(t, "train.json", sampleCOCO)

	ds, err := LoadCOCO("train", path, "/data/train")
	require.NoError(t, err)

	assert.Equal(t, []string{"cristae", "mitochondria"}, ds.Metadata.ThingClasses)
	assert.Equal(t, 2, ds.Metadata.NumClasses())
	assert.Equal(t, 1, ds.Metadata.ThingDatasetIDToContiguousID[2])
	assert.Equal(t, "mitochondria", ds.Metadata.ClassName(1))
	assert.Equal(t, "", ds.Metadata.ClassName(5))

	require.Len(t, ds.Images, 2)
	assert.Equal(t, filepath.Join("/data/train", "a.png"), ds.Images[0].FilePath)
	assert.Equal(t, 2, ds.Images[0].Annotations)
	assert.Equal(t, 1, ds.Images[1].Annotations)
}

func TestLoadCOCO_Errors(t *testing.T) {
	_, err := LoadCOCO("train", filepath.Join(t.TempDir(), "missing.json"), "")
	assert.Error(t, err)

	_, err = LoadCOCO("train", writeFile(t, "bad.json", "{"), "")
	assert.Error(t, err)

	_, err = LoadCOCO("train", writeFile(t, "empty.json", `{"categories": []}`), "")
	assert.Error(t, err)

	unknown := `{"annotations": [{"id": 1, "image_id": 1, "category_id": 9}], "categories": [{"id": 1, "name": "x"}]}`
	_, err = LoadCOCO("train", writeFile(t, "unknown.json", unknown), "")
	assert.Error(t, err)
}

func TestCatalog_RegisterIsGuarded(t *testing.T) {
	c := NewCatalog()
	path := writeFile(t, "train.json", sampleCOCO)

	require.NoError(t, c.Register("train", path, ""))
	assert.True(t, c.IsRegistered("train"))

	err := c.Register("train", path, "")
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))

	assert.Equal(t, []string{"train"}, c.List())
}

func TestCatalog_GetParsesOnce(t *testing.T) {
	c := NewCatalog()
	path := writeFile(t, "train.json", sampleCOCO)
	require.NoError(t, c.Register("train", path, ""))

	first, err := c.Get("train")
	require.NoError(t, err)

	// the cached copy survives the file going away
	require.NoError(t, os.Remove(path))
	second, err := c.Get("train")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = c.Get("val")
	assert.True(t, errors.Is(err, ErrNotRegistered))

	c.Remove("train")
	assert.False(t, c.IsRegistered("train"))
}

func TestLoadClassNames(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{"list", "names: [mito, er]\n", []string{"mito", "er"}, false},
		{"map", "nc: 2\nnames:\n  1: er\n  0: mito\n", []string{"mito", "er"}, false},
		{"sparse map", "names:\n  0: mito\n  2: er\n", nil, true},
		{"missing", "nc: 2\n", nil, true},
		{"empty list", "names: []\n", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "data.yaml", tt.content)
			names, err := LoadClassNames(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)
		})
	}
}
