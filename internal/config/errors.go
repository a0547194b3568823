package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrNoAddress is returned when a resolve run has no input.
	ErrNoAddress = errors.New("no address specified")

	// ErrInvalidTimeout is returned when a strategy deadline is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the batch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidCacheSize is returned for a negative cache size.
	ErrInvalidCacheSize = errors.New("invalid cache size: must be non-negative")

	// ErrInvalidCacheTTL is returned for a negative cache TTL.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl: must be non-negative")

	// ErrInvalidSearchTemplate is returned when the search template is not
	// an http(s) URL.
	ErrInvalidSearchTemplate = errors.New("invalid search template: must be an http(s) URL")

	// ErrUnknownStrategy is returned when a disabled strategy does not exist.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrInvalidRelay is returned for relay bases that are not http(s) URLs.
	ErrInvalidRelay = errors.New("invalid relay")

	// ErrInvalidContentGateway is returned for gateways that are not http(s) URLs.
	ErrInvalidContentGateway = errors.New("invalid content gateway")

	// ErrInvalidDoHResolver is returned for resolvers that are not https URLs.
	ErrInvalidDoHResolver = errors.New("invalid DoH resolver")

	// ErrConflictingTorModes is returned when both an external and the
	// embedded Tor daemon are requested.
	ErrConflictingTorModes = errors.New("conflicting Tor modes: --tor and --embedded-tor cannot be used together")
)
