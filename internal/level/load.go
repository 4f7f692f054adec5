package level

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// levelsFile is the YAML shape for custom level files.
type levelsFile struct {
	Levels map[int]Config `yaml:"levels"`
}

// Load loads the level set.
// Search order: customPath -> ~/.undersea/levels.yaml -> ./configs/levels.yaml -> built-ins
func Load(customPath string) (Set, error) {
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Set{}, fmt.Errorf("level: failed to read %s: %w", customPath, err)
		}
		return parse(data, customPath)
	}

	if userPath := userLevelsPath(); userPath != "" {
		if data, err := os.ReadFile(userPath); err == nil {
			if set, err := parse(data, userPath); err == nil {
				return set, nil
			}
		}
	}

	if data, err := os.ReadFile("configs/levels.yaml"); err == nil {
		if set, err := parse(data, "configs/levels.yaml"); err == nil {
			return set, nil
		}
	}

	return Builtin(), nil
}

func parse(data []byte, path string) (Set, error) {
	var file levelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Set{}, fmt.Errorf("level: failed to parse %s: %w", path, err)
	}
	set, err := NewSet(file.Levels)
	if err != nil {
		return Set{}, fmt.Errorf("level: %s: %w", path, err)
	}
	return set, nil
}

// userLevelsPath returns the path to the user levels file, or empty if home
// is unavailable.
func userLevelsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".undersea", "levels.yaml")
}
