// Package config resolves the global pwvault settings from command-line
// flags, PWVAULT_* environment variables and defaults, in that order.
package config
