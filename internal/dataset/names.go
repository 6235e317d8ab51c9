package dataset

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadClassNames reads the "names" entry of a dataset YAML file. Both the list
// form and the index-to-name map form are accepted; map indices must be dense.
func LoadClassNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read class names")
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, errors.Wrapf(err, "decode names in %s", path)
		}
		if len(names) == 0 {
			return nil, errors.Errorf("%s: names is empty", path)
		}
		return names, nil

	case yaml.MappingNode:
		var byIndex map[int]string
		if err := doc.Names.Decode(&byIndex); err != nil {
			return nil, errors.Wrapf(err, "decode names in %s", path)
		}
		indices := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		names := make([]string, len(indices))
		for pos, i := range indices {
			if i != pos {
				return nil, errors.Errorf("%s: class index %d missing", path, pos)
			}
			names[pos] = byIndex[i]
		}
		if len(names) == 0 {
			return nil, errors.Errorf("%s: names is empty", path)
		}
		return names, nil

	default:
		return nil, errors.Errorf("%s: no names list", path)
	}
}
