package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName     = "tvstream"
	profileFile = "session.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/tvstream or $HOME/.config/tvstream
//   - macOS: $HOME/.config/tvstream (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\tvstream
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default session profile.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, profileFile), nil
}

// LoadProfile reads a session profile from path, layered over DefaultProfile.
// An empty path means the default location. A missing file at the default
// location is not an error: the defaults are returned. A missing file at an
// explicit path is.
func LoadProfile(path string) (*Profile, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return DefaultProfile(), nil
		}
		return nil, fmt.Errorf("failed to read session profile: %w", err)
	}

	return ParseProfile(data)
}

// ParseProfile decodes YAML over the defaults and validates the result.
func ParseProfile(data []byte) (*Profile, error) {
	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("failed to parse session profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate checks that the profile can drive a session.
func (p *Profile) Validate() error {
	if p.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", p.Version, CurrentVersion)
	}

	var problems []string
	if p.Endpoint.Host == "" {
		problems = append(problems, "endpoint.host is required")
	}
	if p.Endpoint.Port <= 0 || p.Endpoint.Port > 65535 {
		problems = append(problems, fmt.Sprintf("endpoint.port %d out of range", p.Endpoint.Port))
	}
	if !strings.HasPrefix(p.Endpoint.Path, "/") {
		problems = append(problems, "endpoint.path must start with /")
	}

	s := p.Session
	if s.Symbol == "" {
		problems = append(problems, "session.symbol is required")
	}
	ids := map[string]string{
		"quote":        s.IDs.Quote,
		"chart":        s.IDs.Chart,
		"symbol":       s.IDs.Symbol,
		"series":       s.IDs.Series,
		"study_parent": s.IDs.StudyParent,
		"study":        s.IDs.Study,
	}
	for _, name := range []string{"quote", "chart", "symbol", "series", "study_parent", "study"} {
		if ids[name] == "" {
			problems = append(problems, fmt.Sprintf("session.ids.%s is required", name))
		}
	}
	if len(s.Quote.Fields) == 0 {
		problems = append(problems, "session.quote.fields must not be empty")
	}
	if s.Series.Interval == "" {
		problems = append(problems, "session.series.interval is required")
	}
	if s.Series.Lookback <= 0 {
		problems = append(problems, "session.series.lookback must be positive")
	}
	if s.Study.Script == "" {
		problems = append(problems, "session.study.script is required")
	}
	seen := make(map[string]bool, len(s.Study.Inputs))
	for i, in := range s.Study.Inputs {
		if in.Name == "" {
			problems = append(problems, fmt.Sprintf("session.study.inputs[%d] has no name", i))
			continue
		}
		if seen[in.Name] {
			problems = append(problems, fmt.Sprintf("session.study.inputs has duplicate %q", in.Name))
		}
		seen[in.Name] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid session profile: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the profile to path (the default location when empty).
// Performs an atomic write to prevent corruption on crash.
func (p *Profile) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal session profile: %w", err)
	}

	header := []byte(`# tvstream session profile
# Static data sent to the gateway after it says hello: auth token, session ids,
# quote fields, candle series and the attached indicator.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
