package corpus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedCase is one corpus bootstrap record as read from the seed file
type SeedCase struct {
	Features map[string]float64 `yaml:"features"`
	Label    string             `yaml:"label"`
}

// seedFile is the on-disk corpus seed format
type seedFile struct {
	Cases []SeedCase `yaml:"cases"`
}

// LoadSeed reads the corpus bootstrap file. An empty path yields an empty
// corpus.
func LoadSeed(path string) ([]SeedCase, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus seed file: %w", err)
	}

	for i, c := range file.Cases {
		if len(c.Features) == 0 {
			return nil, fmt.Errorf("seed case %d has no features", i)
		}
	}
	return file.Cases, nil
}
