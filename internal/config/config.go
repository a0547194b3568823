package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/resolve"
	"github.com/nao1215/waypoint/internal/transport"
)

const (
	// AppName is used for XDG directory paths.
	AppName = "waypoint"

	// DefaultTorProxyAddress is the standard Tor SOCKS port.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout bounds embedded daemon bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultCacheSize is the number of resolutions kept in memory.
	DefaultCacheSize = 1024

	// DefaultListenAddr is where `waypoint serve` listens.
	DefaultListenAddr = "127.0.0.1:8080"

	// DefaultDNSLinkZone is empty: pseudo names are looked up as given.
	DefaultDNSLinkZone = ""

	// DefaultArchiveBase prefixes the archive action of fallback pages.
	DefaultArchiveBase = "https://web.archive.org/web/*/"
)

// Default endpoint lists. They are public services; override them in the
// configuration file for private deployments.
var (
	DefaultRelays = []transport.Relay{
		{Base: "https://api.allorigins.win/raw?url=", Template: transport.RelayQuery},
		{Base: "https://corsproxy.io/?url=", Template: transport.RelayQuery},
	}
	DefaultDoHResolvers = []string{
		"https://cloudflare-dns.com/dns-query",
		"https://dns.google/dns-query",
	}
	DefaultContentGateways = []string{
		"https://ipfs.io",
		"https://dweb.link",
	}
)

// Config holds every setting of a waypoint run. It is filled from defaults,
// then the configuration file, then command-line flags, and is not modified
// after the resolver is built.
type Config struct {
	// ConfigFilePath is an explicit configuration file. Empty means search
	// the working directory and then the home directory.
	ConfigFilePath string

	// Verbose selects debug logging; otherwise only warnings are logged.
	Verbose bool

	// LogJSON selects JSON log output.
	LogJSON bool

	// Timeouts holds the per-strategy deadlines.
	Timeouts resolve.Timeouts

	// Relays are tried in order by the proxy-relay strategy and listed on
	// fallback pages.
	Relays []transport.Relay

	// OnionGateways are "socks5://host:port" proxies or clearnet rewrite
	// suffixes such as "onion.ws".
	OnionGateways []string

	// DoHResolvers are DNS-over-HTTPS endpoints used by dns-bypass and by
	// DNSLink lookups.
	DoHResolvers []string

	// ContentGateways are gateway roots for content locators.
	ContentGateways []string

	// Registry maps pseudo-domain names to content locators.
	Registry map[string]string

	// DNSLinkZone, when set, publishes pseudo names under a DNS zone.
	DNSLinkZone string

	// PseudoSuffixes are the private suffixes recognized by the classifier.
	PseudoSuffixes []string

	// Disabled lists strategies that are never attempted.
	Disabled []string

	// CacheSize bounds the in-memory cache. Zero means unbounded.
	CacheSize int

	// CacheTTL expires cached resolutions. Zero means they never expire.
	CacheTTL time.Duration

	// SearchTemplate builds the search target of free-text queries.
	SearchTemplate string

	// ArchiveBase prefixes the archive action of fallback pages.
	ArchiveBase string

	// Concurrency bounds parallel resolutions of a batch.
	Concurrency int

	// DBDir is the directory of the SQLite database.
	DBDir string

	// Persist enables the SQLite cache backing and resolution history.
	Persist bool

	// UseTor adds TorProxyAddress as the first onion gateway.
	UseTor bool

	// TorProxyAddress is the Tor SOCKS5 proxy in "host:port" form.
	TorProxyAddress string

	// UseEmbeddedTor starts a private Tor daemon and routes onion
	// addresses through it.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds embedded daemon bootstrap.
	TorStartupTimeout time.Duration

	// ReportFormat is "simple", "json" or "markdown".
	ReportFormat string

	// ReportFile receives the report instead of stdout when set.
	ReportFile string

	// UserAgent is sent with outgoing requests.
	UserAgent string

	// ListenAddr is the address of the HTTP service.
	ListenAddr string

	// Addresses are the inputs of a resolve run.
	Addresses []string
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Timeouts:          resolve.DefaultTimeouts(),
		Relays:            slices.Clone(DefaultRelays),
		DoHResolvers:      slices.Clone(DefaultDoHResolvers),
		ContentGateways:   slices.Clone(DefaultContentGateways),
		Registry:          make(map[string]string),
		DNSLinkZone:       DefaultDNSLinkZone,
		PseudoSuffixes:    []string{address.DefaultPseudoSuffix},
		CacheSize:         DefaultCacheSize,
		SearchTemplate:    resolve.DefaultSearchTemplate,
		ArchiveBase:       DefaultArchiveBase,
		Concurrency:       resolve.DefaultConcurrency,
		DBDir:             XDGDataDir(),
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		ReportFormat:      "simple",
		UserAgent:         transport.DefaultUserAgent,
		ListenAddr:        DefaultListenAddr,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/waypoint.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the configuration directory, e.g. ~/.config/waypoint.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the cache directory, e.g. ~/.cache/waypoint.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// OnionGatewayEntries returns the onion gateway list with the Tor proxy
// first when UseTor is set.
func (c *Config) OnionGatewayEntries() []string {
	if !c.UseTor {
		return c.OnionGateways
	}
	socks := "socks5://" + c.TorProxyAddress
	entries := []string{socks}
	for _, e := range c.OnionGateways {
		if !strings.EqualFold(e, socks) {
			entries = append(entries, e)
		}
	}
	return entries
}

// knownStrategies are the names accepted by Disabled.
var knownStrategies = []string{
	transport.StrategyDirect,
	transport.StrategyDNSBypass,
	transport.StrategyFragment,
	transport.StrategyRelay,
	transport.StrategyOnionGateway,
	transport.StrategyContentGateway,
	transport.StrategyNaming,
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	t := c.Timeouts
	for _, d := range []time.Duration{t.Direct, t.DNSBypass, t.Fragment, t.Relay, t.OnionGateway, t.ContentGateway, t.Naming} {
		if d <= 0 {
			return ErrInvalidTimeout
		}
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.CacheSize < 0 {
		return ErrInvalidCacheSize
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if !isHTTPURL(strings.ReplaceAll(c.SearchTemplate, address.QueryPlaceholder, "q")) {
		return ErrInvalidSearchTemplate
	}
	for _, name := range c.Disabled {
		if !slices.Contains(knownStrategies, name) {
			return fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}
	}
	for _, r := range c.Relays {
		if !isHTTPURL(r.Base) {
			return fmt.Errorf("%w: %q", ErrInvalidRelay, r.Base)
		}
	}
	for _, g := range c.ContentGateways {
		if !isHTTPURL(g) {
			return fmt.Errorf("%w: %q", ErrInvalidContentGateway, g)
		}
	}
	for _, d := range c.DoHResolvers {
		if u, err := url.Parse(d); err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidDoHResolver, d)
		}
	}
	if c.UseTor && c.UseEmbeddedTor {
		return ErrConflictingTorModes
	}
	return nil
}

// ValidateForResolve is Validate plus the requirement of at least one address.
func (c *Config) ValidateForResolve() error {
	if len(c.Addresses) == 0 {
		return ErrNoAddress
	}
	return c.Validate()
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
