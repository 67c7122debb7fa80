// pkg/config/config.go - configuration settings for wpkg/core.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/windows/registry"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location of the on-disk configuration file.
const ConfigPath = `C:\ProgramData\wpkg\Config.yaml`

// CSPRegistryPath is the CSP OMA-URI registry path used as a fallback
// configuration source for enterprise-managed deployments.
const CSPRegistryPath = `SOFTWARE\wpkg\Config`

// Configuration holds the configurable options for the package-manager core.
type Configuration struct {
	// SourcesPath is where the persisted Sources/SourcesMetadata YAML live (§4.2, §6).
	SourcesPath string `yaml:"SourcesPath"`
	// ManifestCachePath is where downloaded/ingested manifest documents are cached.
	ManifestCachePath string `yaml:"ManifestCachePath"`
	// ProductMetadataPath is where ProductMetadata JSON accumulators are persisted (§4.4).
	ProductMetadataPath string `yaml:"ProductMetadataPath"`
	// LogPath is the base directory for timestamped log sessions.
	LogPath  string `yaml:"LogPath"`
	LogLevel string `yaml:"LogLevel"`

	DefaultArch string `yaml:"DefaultArch"`

	// CorrelationThreshold is the default normalized edit-distance confidence
	// threshold (§4.4; SPEC_FULL fixes the default at 0.75).
	CorrelationThreshold float64 `yaml:"CorrelationThreshold"`

	// MaxSupportedManifestMajor gates parsing of manifests whose declared
	// ManifestVersion major component exceeds this value (§4.1).
	MaxSupportedManifestMajor int `yaml:"MaxSupportedManifestMajor"`

	Debug   bool `yaml:"Debug"`
	Verbose bool `yaml:"Verbose"`
}

// LoadConfig loads the configuration from a YAML file, falling back to CSP
// OMA-URI registry settings when the file does not exist.
func LoadConfig() (*Configuration, error) {
	if _, err := os.Stat(ConfigPath); os.IsNotExist(err) {
		log.Printf("Configuration file does not exist: %s", ConfigPath)
		log.Printf("Attempting to load configuration from CSP OMA-URI registry settings...")

		cfg, cspErr := LoadConfigFromCSP()
		if cspErr == nil {
			log.Printf("Successfully loaded configuration from CSP OMA-URI registry settings")
			return cfg, nil
		}

		log.Printf("Failed to load from CSP registry: %v", cspErr)
		return nil, fmt.Errorf("configuration file does not exist and CSP fallback failed: %w", err)
	}

	data, err := os.ReadFile(ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	if err := ensureDirs(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig serializes the configuration to YAML and writes it to ConfigPath.
func SaveConfig(cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serializing configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(ConfigPath), 0755); err != nil {
		return fmt.Errorf("creating configuration directory: %w", err)
	}

	return os.WriteFile(ConfigPath, data, 0644)
}

// GetDefaultConfig returns the built-in defaults.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		SourcesPath:               `C:\ProgramData\wpkg\sources`,
		ManifestCachePath:         `C:\ProgramData\wpkg\manifests`,
		ProductMetadataPath:       `C:\ProgramData\wpkg\metadata`,
		LogPath:                   `C:\ProgramData\wpkg\logs`,
		LogLevel:                  "INFO",
		DefaultArch:               "x64",
		CorrelationThreshold:      0.75,
		MaxSupportedManifestMajor: 1,
	}
}

func ensureDirs(cfg *Configuration) error {
	for _, path := range []string{cfg.SourcesPath, cfg.ManifestCachePath, cfg.ProductMetadataPath} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfigFromCSP loads configuration from Windows CSP OMA-URI registry
// settings, used as a fallback when Config.yaml doesn't exist.
func LoadConfigFromCSP() (*Configuration, error) {
	cfg := GetDefaultConfig()

	if err := loadCSPFromRegistryPath(CSPRegistryPath, cfg); err != nil {
		return nil, fmt.Errorf("loading CSP registry path: %w", err)
	}

	if err := ensureDirs(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadCSPFromRegistryPath(registryPath string, cfg *Configuration) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, registryPath, registry.READ)
	if err != nil {
		return fmt.Errorf("opening CSP registry key %s: %w", registryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "SourcesPath", &cfg.SourcesPath)
	loadStringFromRegistry(key, "ManifestCachePath", &cfg.ManifestCachePath)
	loadStringFromRegistry(key, "ProductMetadataPath", &cfg.ProductMetadataPath)
	loadStringFromRegistry(key, "LogPath", &cfg.LogPath)
	loadStringFromRegistry(key, "LogLevel", &cfg.LogLevel)
	loadStringFromRegistry(key, "DefaultArch", &cfg.DefaultArch)

	loadFloatFromRegistry(key, "CorrelationThreshold", &cfg.CorrelationThreshold)
	loadIntFromRegistry(key, "MaxSupportedManifestMajor", &cfg.MaxSupportedManifestMajor)

	loadBoolFromRegistry(key, "Debug", &cfg.Debug)
	loadBoolFromRegistry(key, "Verbose", &cfg.Verbose)

	return nil
}

func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
	}
}

func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
	}
}

func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
	}
}

func loadFloatFromRegistry(key registry.Key, valueName string, target *float64) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseFloat(val, 64); parseErr == nil {
			*target = parsed
		}
	}
}
