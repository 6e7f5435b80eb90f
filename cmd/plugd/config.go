package main

import (
	"encoding/json"
	"os"
)

// Config is plugd's on-disk configuration, the same JSON-file-plus-flag-
// overrides shape the teacher's Inventoryd.Config uses.
type Config struct {
	ListenAddress         string `json:"listenAddress"`
	BootstrapServer       string `json:"bootstrapServer"`
	RegistrationServer    string `json:"registrationServer"`
	EndpointClientName    string `json:"endpointClientName"`
	Lifetime              int    `json:"lifetime"`
	PowerControlInstances int    `json:"powerControlInstances"`
	Identity              string `json:"identity"`
	PSK                   string `json:"psk"`
}

// DefaultConfig returns the configuration written by -init.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:         ":5683",
		Lifetime:              86400,
		PowerControlInstances: 1,
	}
}

// LoadConfig reads and parses a Config from path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := &Config{}
	if err := json.Unmarshal(raw, config); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes config to path as indented JSON. The file can carry the
// PSK pre-shared key, so it is written readable only by its owner.
func SaveConfig(path string, config *Config) error {
	raw, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
