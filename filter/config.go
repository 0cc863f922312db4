package filter

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Config enumerates the platform tags considered platform-independent.
// Anything gated by a tag outside Supported is excluded. Prune drops
// types left unreferenced by every kept command; keeping them is also
// valid, so it defaults to off.
type Config struct {
	Supported []string
	Prune     bool
}

// DefaultConfig keeps only ungated, platform-independent entities.
func DefaultConfig() Config { return Config{} }

// LoadConfig reads a JSON filter configuration:
//
//	{"supported": ["win32", "wayland"], "prune": false}
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading filter config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	if !gjson.ValidBytes(data) {
		return Config{}, fmt.Errorf("filter config is not valid JSON")
	}
	cfg := Config{}
	for _, tag := range gjson.GetBytes(data, "supported").Array() {
		cfg.Supported = append(cfg.Supported, tag.String())
	}
	cfg.Prune = gjson.GetBytes(data, "prune").Bool()
	return cfg, nil
}
