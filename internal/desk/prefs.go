package desk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPrefsPath is where preferences live unless configured otherwise.
const DefaultPrefsPath = "~/.config/product-desk/prefs.toml"

// Prefs holds the dashboard preferences that survive restarts.
type Prefs struct {
	ApprovedOnly bool   `toml:"approved_only"`
	Theme        string `toml:"theme"`
}

// LoadPrefs reads preferences from path. A missing or unreadable file yields
// defaults.
func LoadPrefs(path string) Prefs {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := expandPath(path)
	if err != nil {
		return prefs
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return prefs
	}
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}
	}
	if _, ok := themes[prefs.Theme]; !ok {
		prefs.Theme = defaultTheme
	}
	return prefs
}

// SavePrefs writes preferences to path, creating directories as needed.
func SavePrefs(path string, p Prefs) error {
	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = DefaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(trimmed, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, rest)
	}
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	return filepath.Abs(trimmed)
}
