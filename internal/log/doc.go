// Package log builds slog loggers that mask sensitive values.
//
// SecureHandler wraps any slog.Handler. It masks attributes whose key names
// a credential (cookie, authorization, token, password and similar), values
// that look like bearer tokens or keys, and the user:password part of relay
// and gateway URLs. Addresses, hosts and content locators are public and are
// logged as given.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("probing relay", "relay", "https://user:pw@relay.example/")
//	// relay=https://***REDACTED***@relay.example/
package log
