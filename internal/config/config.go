// Package config builds the server configuration once at startup: an
// optional YAML file overlaid by environment variables. Missing upstream
// credentials are not a startup error; the training proxy reports them per
// call.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvToken      = "GPTMAKER_TOKEN"
	EnvAgentHM    = "AGENT_ID_HM"
	EnvAgentBM    = "AGENT_ID_BM"
	EnvBaseURL    = "GPTMAKER_BASE_URL"
	EnvAddr       = "TRAINHUB_ADDR"
	EnvWriteLimit = "TRAINHUB_WRITE_LIMIT"

	DefaultBaseURL = "https://api.gptmaker.ai/v2"
	DefaultAddr    = ":8080"
)

type Config struct {
	Addr      string    `yaml:"addr"`
	Upstream  Upstream  `yaml:"upstream"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Widgets   []Widget  `yaml:"widgets"`
}

// Upstream holds what the training proxy needs to reach the provider.
// Agents is keyed by logical agent ("hm", "bm").
type Upstream struct {
	BaseURL string            `yaml:"base_url"`
	Token   string            `yaml:"token"`
	Agents  map[string]string `yaml:"agents"`
	Timeout time.Duration     `yaml:"timeout"`
}

type RateLimit struct {
	Writes int           `yaml:"writes"`
	Window time.Duration `yaml:"window"`
}

type Widget struct {
	Slug      string `yaml:"slug"`
	Label     string `yaml:"label"`
	IframeSrc string `yaml:"iframe_src"`
}

// AgentEnvKey names the variable that carries the upstream id of a logical
// agent, or "" when the agent is not one of the two known ones.
func AgentEnvKey(agent string) string {
	switch agent {
	case "hm":
		return EnvAgentHM
	case "bm":
		return EnvAgentBM
	default:
		return ""
	}
}

func Default() *Config {
	return &Config{
		Addr: DefaultAddr,
		Upstream: Upstream{
			BaseURL: DefaultBaseURL,
			Agents:  map[string]string{},
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimit{
			Writes: 30,
			Window: time.Minute,
		},
		Widgets: []Widget{
			{
				Slug:      "bluemilk",
				Label:     "IA BlueMilk",
				IframeSrc: "https://app.gptmaker.ai/widget/3ED9B41F212FF3B0AB29EE45785CCB51/iframe",
			},
			{
				Slug:      "usoulimpou",
				Label:     "IA UsouLimpou",
				IframeSrc: "https://app.gptmaker.ai/widget/3ED9B439BC19B10D4A241AC4C59CD28F/iframe",
			},
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// process environment.
func Load(path string) (*Config, error) {
	c := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.normalize()
	return c, nil
}

// ApplyEnv overlays values from lookup. Set but empty variables are
// ignored so an exported blank never clears a file value.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if c.Upstream.Agents == nil {
		c.Upstream.Agents = map[string]string{}
	}
	if v, ok := get(EnvToken); ok {
		c.Upstream.Token = v
	}
	if v, ok := get(EnvAgentHM); ok {
		c.Upstream.Agents["hm"] = v
	}
	if v, ok := get(EnvAgentBM); ok {
		c.Upstream.Agents["bm"] = v
	}
	if v, ok := get(EnvBaseURL); ok {
		c.Upstream.BaseURL = v
	}
	if v, ok := get(EnvAddr); ok {
		c.Addr = v
	}
	if v, ok := get(EnvWriteLimit); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errors.New(EnvWriteLimit + " must be a non-negative integer")
		}
		c.RateLimit.Writes = n
	}
	return nil
}

func (c *Config) normalize() {
	c.Upstream.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.Upstream.BaseURL), "/")
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultBaseURL
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
}

// ConfiguredAgents lists the logical agents that have an upstream id.
func (u Upstream) ConfiguredAgents() []string {
	out := make([]string, 0, 2)
	for _, a := range []string{"hm", "bm"} {
		if strings.TrimSpace(u.Agents[a]) != "" {
			out = append(out, a)
		}
	}
	return out
}

// Missing names the env keys of upstream settings that are unset. They fail
// the calls that need them, not the process.
func (u Upstream) Missing() []string {
	var missing []string
	if strings.TrimSpace(u.Token) == "" {
		missing = append(missing, EnvToken)
	}
	for _, a := range []string{"hm", "bm"} {
		if strings.TrimSpace(u.Agents[a]) == "" {
			missing = append(missing, AgentEnvKey(a))
		}
	}
	return missing
}
