package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

type cocoFile struct {
	Images []struct {
		ID       int    `json:"id"`
		FileName string `json:"file_name"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
	} `json:"images"`
	Annotations []struct {
		ID         int `json:"id"`
		ImageID    int `json:"image_id"`
		CategoryID int `json:"category_id"`
	} `json:"annotations"`
	Categories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
}

// Metadata describes the classes of a dataset.
type Metadata struct {
	Name         string
	ThingClasses []string
	// ThingDatasetIDToContiguousID maps COCO category ids to indices into ThingClasses.
	ThingDatasetIDToContiguousID map[int]int
}

// NumClasses returns the number of object classes.
func (m *Metadata) NumClasses() int {
	return len(m.ThingClasses)
}

// ClassName returns the name for a contiguous class index, or "" when out of range.
func (m *Metadata) ClassName(id int) string {
	if id < 0 || id >= len(m.ThingClasses) {
		return ""
	}
	return m.ThingClasses[id]
}

// ImageEntry is one training image with its annotation count.
type ImageEntry struct {
	ID          int
	FilePath    string
	Width       int
	Height      int
	Annotations int
}

// Dataset is a parsed COCO-format dataset.
type Dataset struct {
	Metadata Metadata
	Images   []ImageEntry
}

// LoadCOCO parses a COCO instances JSON file.
func LoadCOCO(name, annotationsPath, imagesDir string) (*Dataset, error) {
	data, err := os.ReadFile(annotationsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read annotations for dataset %q", name)
	}

	var coco cocoFile
	if err := json.Unmarshal(data, &coco); err != nil {
		return nil, errors.Wrapf(err, "parse annotations %s", annotationsPath)
	}
	if len(coco.Categories) == 0 {
		return nil, errors.Errorf("annotations %s define no categories", annotationsPath)
	}

	categories := coco.Categories
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	meta := Metadata{
		Name:                         name,
		ThingClasses:                 make([]string, 0, len(categories)),
		ThingDatasetIDToContiguousID: make(map[int]int, len(categories)),
	}
	for i, cat := range categories {
		meta.ThingClasses = append(meta.ThingClasses, cat.Name)
		meta.ThingDatasetIDToContiguousID[cat.ID] = i
	}

	counts := make(map[int]int)
	for _, ann := range coco.Annotations {
		if _, ok := meta.ThingDatasetIDToContiguousID[ann.CategoryID]; !ok {
			return nil, errors.Errorf("annotation %d references unknown category %d", ann.ID, ann.CategoryID)
		}
		counts[ann.ImageID]++
	}

	images := make([]ImageEntry, 0, len(coco.Images))
	for _, img := range coco.Images {
		images = append(images, ImageEntry{
			ID:          img.ID,
			FilePath:    filepath.Join(imagesDir, img.FileName),
			Width:       img.Width,
			Height:      img.Height,
			Annotations: counts[img.ID],
		})
	}

	return &Dataset{Metadata: meta, Images: images}, nil
}
