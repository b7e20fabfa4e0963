package geo

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// boundaryFile is the on-disk YAML schema for the district boundary set.
// List order is priority order.
type boundaryFile struct {
	Districts []boundaryEntry `yaml:"districts"`
}

type boundaryEntry struct {
	Name  string       `yaml:"name"`
	Color string       `yaml:"color"`
	Ring  [][2]float64 `yaml:"ring"` // (lng, lat) pairs, wgs84
}

// LoadBoundaries reads the district boundary set from a YAML file. The set is
// loaded once at startup and injected into the Classifier.
func LoadBoundaries(path string) ([]Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read boundaries %s", path)
	}

	var file boundaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "geo: parse boundaries %s", path)
	}
	if len(file.Districts) == 0 {
		return nil, eris.Errorf("geo: boundaries file %s defines no districts", path)
	}

	seen := make(map[string]bool, len(file.Districts))
	boundaries := make([]Boundary, 0, len(file.Districts))
	for _, entry := range file.Districts {
		if seen[entry.Name] {
			return nil, eris.Errorf("geo: duplicate district %q in %s", entry.Name, path)
		}
		seen[entry.Name] = true

		b, err := NewBoundary(entry.Name, entry.Color, entry.Ring)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, b)
	}

	zap.L().Debug("district boundaries loaded",
		zap.String("path", path),
		zap.Int("districts", len(boundaries)),
	)
	return boundaries, nil
}
