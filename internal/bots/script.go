// Package bots simulates scripted participants next to a real conversation.
package bots

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"chat-feed/internal/models"
)

//go:embed default_script.yaml
var defaultScript []byte

type scriptFile struct {
	Entries []models.ScriptEntry `yaml:"entries"`
}

// LoadScript reads a YAML script from path. An empty path yields the
// built-in demo script.
func LoadScript(path string) ([]models.ScriptEntry, error) {
	data := defaultScript
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read bot script %s: %w", path, err)
		}
		data = raw
	}
	return ParseScript(data)
}

// ParseScript decodes a YAML script document.
func ParseScript(data []byte) ([]models.ScriptEntry, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bot script: %w", err)
	}
	return f.Entries, nil
}

// ValidateScript checks every author carries the bot prefix, so routing by
// author always recognises scripted messages.
func ValidateScript(entries []models.ScriptEntry, authorPrefix string) error {
	for i, e := range entries {
		if !strings.HasPrefix(e.Author, authorPrefix) {
			return fmt.Errorf("entry %d: author %q lacks bot prefix %q", i, e.Author, authorPrefix)
		}
		if e.Offset < 0 {
			return fmt.Errorf("entry %d: negative offset %s", i, e.Offset)
		}
		if strings.TrimSpace(e.Text) == "" {
			return fmt.Errorf("entry %d: empty text", i)
		}
	}
	return nil
}
