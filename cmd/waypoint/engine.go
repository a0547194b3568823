package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/waypoint/internal/address"
	"github.com/nao1215/waypoint/internal/cache"
	"github.com/nao1215/waypoint/internal/config"
	"github.com/nao1215/waypoint/internal/database"
	"github.com/nao1215/waypoint/internal/doh"
	"github.com/nao1215/waypoint/internal/fallback"
	"github.com/nao1215/waypoint/internal/metrics"
	"github.com/nao1215/waypoint/internal/naming"
	"github.com/nao1215/waypoint/internal/resolve"
	"github.com/nao1215/waypoint/internal/tor"
	"github.com/nao1215/waypoint/internal/transport"
)

// addEngineFlags registers the flags shared by commands that resolve.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("disable", nil,
		"Strategies never to attempt (e.g. fragment,proxy-relay)")
	cmd.Flags().Bool("persist", false,
		"Keep the cache and resolution history in SQLite")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Maximum cached resolutions (0 = unbounded)")
	cmd.Flags().Duration("cache-ttl", 0,
		"Expire cached resolutions after this long (0 = never)")
	cmd.Flags().Bool("tor", false,
		"Route onion addresses through the Tor SOCKS proxy")
	cmd.Flags().String("tor-proxy", config.DefaultTorProxyAddress,
		"Tor SOCKS5 proxy address")
	cmd.Flags().Bool("embedded-tor", false,
		"Start an embedded Tor daemon for onion addresses")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().String("user-agent", transport.DefaultUserAgent,
		"User-Agent sent with outgoing requests")
}

// buildConfig layers defaults, the configuration file and changed flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := f.Apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	flags := cmd.Flags()
	if flags.Changed("disable") {
		if cfg.Disabled, err = flags.GetStringSlice("disable"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("persist") {
		if cfg.Persist, err = flags.GetBool("persist"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cache-size") {
		if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cache-ttl") {
		if cfg.CacheTTL, err = flags.GetDuration("cache-ttl"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor") {
		if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor-proxy") {
		if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
			return nil, err
		}
		cfg.UseTor = true
	}
	if flags.Changed("embedded-tor") {
		if cfg.UseEmbeddedTor, err = flags.GetBool("embedded-tor"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tor-timeout") {
		if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose, _ = flags.GetBool("verbose")  //nolint:errcheck // persistent flag always defined
	cfg.LogJSON, _ = flags.GetBool("log-json") //nolint:errcheck // persistent flag always defined
	cfg.Addresses = args
	return cfg, nil
}

// engine owns everything a resolving command needs.
type engine struct {
	cfg         *config.Config
	logger      *slog.Logger
	classifier  *address.Classifier
	resolver    *resolve.Resolver
	synthesizer *fallback.Synthesizer
	metrics     *metrics.Metrics
	store       *database.Store
	embedded    *tor.EmbeddedTor
}

// newEngine wires the resolver from cfg. Progress of slow steps such as
// Tor bootstrap is written to status.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*engine, error) {
	e := &engine{
		cfg:        cfg,
		logger:     logger,
		classifier: address.NewClassifier(address.WithPseudoSuffixes(cfg.PseudoSuffixes...)),
	}

	if cfg.Persist {
		store, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		e.store = store
		logger.Info("database opened", "path", store.Path())
	}

	onionEntries := cfg.OnionGatewayEntries()
	switch {
	case cfg.UseEmbeddedTor:
		socks, err := e.startEmbeddedTor(ctx, status)
		if err != nil {
			e.Close()
			return nil, err
		}
		onionEntries = append([]string{socks}, onionEntries...)
	case cfg.UseTor:
		if client, err := tor.NewClient(cfg.TorProxyAddress, cfg.Timeouts.OnionGateway); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create Tor client: %w", err)
		} else if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
			logger.Warn("Tor proxy check failed; onion gateway through it will fail",
				"proxy", cfg.TorProxyAddress, "status", st.String())
		}
	}

	prober := transport.NewHTTPProber(transport.WithUserAgent(cfg.UserAgent))

	hostResolvers := make([]transport.HostResolver, 0, len(cfg.DoHResolvers))
	txtResolvers := make([]naming.TXTResolver, 0, len(cfg.DoHResolvers))
	for _, endpoint := range cfg.DoHResolvers {
		c := doh.NewClient(endpoint)
		hostResolvers = append(hostResolvers, c)
		txtResolvers = append(txtResolvers, c)
	}

	routes, err := transport.ParseOnionRoutes(onionEntries, tor.ProberFactory(cfg.UserAgent, cfg.Timeouts.OnionGateway))
	if err != nil {
		e.Close()
		return nil, err
	}

	var primaryGateway string
	if len(cfg.ContentGateways) > 0 {
		primaryGateway = cfg.ContentGateways[0]
	}

	cacheOpts := []cache.Option{
		cache.WithSize(cfg.CacheSize),
		cache.WithTTL(cfg.CacheTTL),
		cache.WithLogger(logger),
	}
	if e.store != nil {
		cacheOpts = append(cacheOpts, cache.WithBacking(e.store))
	}
	c := cache.New(cacheOpts...)

	e.metrics = metrics.New()
	e.metrics.RegisterCache(c)
	observers := []resolve.Observer{e.metrics}
	if e.store != nil {
		observers = append(observers, database.NewHistoryRecorder(e.store, logger))
	}

	namer := naming.NewResolver(
		naming.WithRegistry(cfg.Registry),
		naming.WithTXTResolvers(txtResolvers...),
		naming.WithZone(cfg.DNSLinkZone, e.classifier.Suffixes()...),
		naming.WithLogger(logger),
	)

	relay := transport.NewProxyRelay(prober, cfg.Relays, transport.WithContentGateway(primaryGateway))

	e.resolver = resolve.New(
		resolve.WithLogger(logger),
		resolve.WithClassifier(e.classifier),
		resolve.WithCache(c),
		resolve.WithNamer(namer),
		resolve.WithTimeouts(cfg.Timeouts),
		resolve.WithSearchTemplate(cfg.SearchTemplate),
		resolve.WithDisabled(cfg.Disabled...),
		resolve.WithObservers(observers...),
		resolve.WithWebAdapters(
			transport.NewDirect(prober),
			transport.NewDNSBypass(prober, hostResolvers...),
			transport.NewFragment(),
			relay,
			transport.NewOnionGateway(prober, routes),
		),
		resolve.WithContentAdapters(
			transport.NewContentGateway(prober, cfg.ContentGateways...),
			relay,
		),
	)

	e.synthesizer = fallback.New(
		fallback.WithRelays(cfg.Relays...),
		fallback.WithContentGateway(primaryGateway),
		fallback.WithSearchTemplate(cfg.SearchTemplate),
		fallback.WithArchiveBase(cfg.ArchiveBase),
	)

	logger.Debug("resolver ready",
		"strategies", e.resolver.StrategyNames(),
		"relays", len(cfg.Relays),
		"onion_routes", len(routes),
		"max_deadline", cfg.Timeouts.Max(),
	)
	return e, nil
}

func (e *engine) startEmbeddedTor(ctx context.Context, status io.Writer) (string, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps.\n\n")

	e.embedded = tor.NewEmbeddedTor(
		tor.WithStartupTimeout(e.cfg.TorStartupTimeout),
		tor.WithLogger(e.logger),
	)
	if err := e.embedded.Start(ctx); err != nil {
		return "", fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	client, err := e.embedded.NewClient(e.cfg.Timeouts.OnionGateway)
	if err != nil {
		return "", fmt.Errorf("failed to create Tor client: %w", err)
	}
	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		return "", fmt.Errorf("embedded Tor proxy check failed: %s", st)
	}
	fmt.Fprintf(status, "SOCKS proxy: %s\n\n", e.embedded.SocksAddr())
	return client.GatewayEntry(), nil
}

// Close releases the database and stops the embedded daemon.
func (e *engine) Close() {
	if e.embedded != nil {
		if err := e.embedded.Stop(); err != nil {
			e.logger.Error("failed to stop embedded Tor", "error", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("failed to close database", "error", err)
		}
	}
}
