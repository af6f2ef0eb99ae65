// Package utils exposes reusable helpers consumed by multiple commands.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, XDG configuration directories, environment variables, and zap logging
// for the perfgate CLI.
package utils
