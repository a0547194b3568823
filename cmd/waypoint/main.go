// Package main provides the waypoint CLI.
//
// waypoint resolves web addresses, content locators and pseudo-domains,
// falling back through alternative routes when the direct path is blocked.
//
// Usage:
//
//	waypoint resolve <address>...
//	waypoint serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
