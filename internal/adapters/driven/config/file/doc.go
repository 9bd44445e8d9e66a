// Package file loads drivesync settings from disk and the environment.
//
// Settings are layered in this order, later layers winning:
//   - built-in defaults (domain.DefaultSettings)
//   - the TOML config file
//   - a .env file in the working directory
//   - process environment variables
//   - the secrets backend, when it is "ssm"
package file
