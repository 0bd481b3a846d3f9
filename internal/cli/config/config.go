package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".trainhub"
	fileName = "config.yaml"
)

type Config struct {
	Version       int               `yaml:"version"`
	DefaultServer string            `yaml:"default_server"`
	Servers       map[string]Server `yaml:"servers"`
	Preferences   map[string]string `yaml:"preferences,omitempty"`
}

type Server struct {
	URL string `yaml:"url"`
	// Agent is used when a command omits --agent.
	Agent       string `yaml:"agent,omitempty"`
	ConnectedAt string `yaml:"connected_at"`
}

// Path returns the nearest ./.trainhub/config.yaml walking up from the
// working directory, falling back to the one in the home directory.
func Path() (string, error) {
	if wd, err := os.Getwd(); err == nil {
		if p, ok := findLocal(wd); ok {
			return p, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName, fileName), nil
}

func findLocal(dir string) (string, bool) {
	for {
		p := filepath.Join(dir, dirName, fileName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(p)
}

func LoadFromPath(p string) (*Config, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{
				Version:       1,
				DefaultServer: "main",
				Servers:       map[string]Server{},
				Preferences: map[string]string{
					"default_format": "table",
				},
			}, nil
		}
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Servers == nil {
		c.Servers = map[string]Server{}
	}
	if c.DefaultServer == "" {
		c.DefaultServer = "main"
	}
	if c.Version == 0 {
		c.Version = 1
	}
	return &c, nil
}

func Save(c *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(c, p)
}

func SaveToPath(c *Config, p string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func (c *Config) SetDefault(url, agent string) {
	if c.Servers == nil {
		c.Servers = map[string]Server{}
	}
	c.Servers["main"] = Server{
		URL:         url,
		Agent:       agent,
		ConnectedAt: time.Now().UTC().Format(time.RFC3339),
	}
	c.DefaultServer = "main"
}

func (c *Config) ClearDefault() {
	delete(c.Servers, c.DefaultServer)
}

func (c *Config) Default() (Server, bool) {
	s, ok := c.Servers[c.DefaultServer]
	return s, ok
}
