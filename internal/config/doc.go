// Package config loads runtime configuration from multiple sources (YAML or
// TOML files, dotenv files, environment variables, CLI flags) with precedence:
// CLI flags > Environment variables > dotenv file > config file > Defaults.
// Build options given as KEY=VALUE arguments are merged over the options
// section of the config file.
package config
