package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/waypoint/internal/transport"
)

// DefaultConfigFile is the configuration file name searched for.
const DefaultConfigFile = ".waypoint"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file. Unset fields leave the defaults in
// place; lists replace the default list rather than extending it.
type File struct {
	Timeouts        TimeoutsFile      `yaml:"timeouts,omitempty"`
	Relays          []RelayEntry      `yaml:"relays,omitempty"`
	OnionGateways   []string          `yaml:"onion_gateways,omitempty"`
	DoHResolvers    []string          `yaml:"doh_resolvers,omitempty"`
	ContentGateways []string          `yaml:"content_gateways,omitempty"`
	Registry        map[string]string `yaml:"registry,omitempty"`
	DNSLinkZone     string            `yaml:"dnslink_zone,omitempty"`
	PseudoSuffixes  []string          `yaml:"pseudo_suffixes,omitempty"`
	Disabled        []string          `yaml:"disabled,omitempty"`
	Cache           CacheFile         `yaml:"cache,omitempty"`
	SearchTemplate  string            `yaml:"search_template,omitempty"`
	ArchiveBase     string            `yaml:"archive_base,omitempty"`
	Concurrency     int               `yaml:"concurrency,omitempty"`
	UserAgent       string            `yaml:"user_agent,omitempty"`
	Listen          string            `yaml:"listen,omitempty"`
	Tor             TorFile           `yaml:"tor,omitempty"`
}

// TimeoutsFile holds per-strategy deadlines such as "3s".
type TimeoutsFile struct {
	Direct         time.Duration `yaml:"direct,omitempty"`
	DNSBypass      time.Duration `yaml:"dns_bypass,omitempty"`
	Fragment       time.Duration `yaml:"fragment,omitempty"`
	Relay          time.Duration `yaml:"relay,omitempty"`
	OnionGateway   time.Duration `yaml:"onion_gateway,omitempty"`
	ContentGateway time.Duration `yaml:"content_gateway,omitempty"`
	Naming         time.Duration `yaml:"naming,omitempty"`
}

// RelayEntry is one relay in the file.
type RelayEntry struct {
	URL      string `yaml:"url"`
	Template string `yaml:"template,omitempty"`
}

// CacheFile configures the resolution cache.
type CacheFile struct {
	Size    *int          `yaml:"size,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
	Persist *bool         `yaml:"persist,omitempty"`
	Dir     string        `yaml:"dir,omitempty"`
}

// TorFile configures onion routing.
type TorFile struct {
	Enabled        *bool         `yaml:"enabled,omitempty"`
	Proxy          string        `yaml:"proxy,omitempty"`
	Embedded       *bool         `yaml:"embedded,omitempty"`
	StartupTimeout time.Duration `yaml:"startup_timeout,omitempty"`
}

// LoadConfigFile reads the YAML file at path. A missing file is
// ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile returns configPath when it exists, otherwise the first
// .waypoint found in the working directory, the home directory or the XDG
// config directory. It returns "" when there is none.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Apply overlays the file onto cfg.
func (f *File) Apply(cfg *Config) error {
	applyDuration(&cfg.Timeouts.Direct, f.Timeouts.Direct)
	applyDuration(&cfg.Timeouts.DNSBypass, f.Timeouts.DNSBypass)
	applyDuration(&cfg.Timeouts.Fragment, f.Timeouts.Fragment)
	applyDuration(&cfg.Timeouts.Relay, f.Timeouts.Relay)
	applyDuration(&cfg.Timeouts.OnionGateway, f.Timeouts.OnionGateway)
	applyDuration(&cfg.Timeouts.ContentGateway, f.Timeouts.ContentGateway)
	applyDuration(&cfg.Timeouts.Naming, f.Timeouts.Naming)

	if len(f.Relays) > 0 {
		relays := make([]transport.Relay, 0, len(f.Relays))
		for _, e := range f.Relays {
			tmpl, err := transport.ParseRelayTemplate(e.Template)
			if err != nil {
				return fmt.Errorf("relay %s: %w", e.URL, err)
			}
			relays = append(relays, transport.Relay{Base: e.URL, Template: tmpl})
		}
		cfg.Relays = relays
	}

	applyList(&cfg.OnionGateways, f.OnionGateways)
	applyList(&cfg.DoHResolvers, f.DoHResolvers)
	applyList(&cfg.ContentGateways, f.ContentGateways)
	applyList(&cfg.PseudoSuffixes, f.PseudoSuffixes)
	applyList(&cfg.Disabled, f.Disabled)

	for name, locator := range f.Registry {
		if cfg.Registry == nil {
			cfg.Registry = make(map[string]string)
		}
		cfg.Registry[name] = locator
	}

	applyString(&cfg.DNSLinkZone, f.DNSLinkZone)
	applyString(&cfg.SearchTemplate, f.SearchTemplate)
	applyString(&cfg.ArchiveBase, f.ArchiveBase)
	applyString(&cfg.UserAgent, f.UserAgent)
	applyString(&cfg.ListenAddr, f.Listen)
	if f.Concurrency != 0 {
		cfg.Concurrency = f.Concurrency
	}

	if f.Cache.Size != nil {
		cfg.CacheSize = *f.Cache.Size
	}
	applyDuration(&cfg.CacheTTL, f.Cache.TTL)
	if f.Cache.Persist != nil {
		cfg.Persist = *f.Cache.Persist
	}
	applyString(&cfg.DBDir, f.Cache.Dir)

	if f.Tor.Enabled != nil {
		cfg.UseTor = *f.Tor.Enabled
	}
	if f.Tor.Embedded != nil {
		cfg.UseEmbeddedTor = *f.Tor.Embedded
	}
	applyString(&cfg.TorProxyAddress, f.Tor.Proxy)
	applyDuration(&cfg.TorStartupTimeout, f.Tor.StartupTimeout)

	return nil
}

func applyDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func applyString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}
