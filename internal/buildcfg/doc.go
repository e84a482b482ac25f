// Package buildcfg resolves C/C++ build configurations. A configuration is
// selected by target platform and build flavor, assembled from a per-family
// table of flag rules, and memoized by name in an injected Cache.
package buildcfg
