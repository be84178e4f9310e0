// Package config provides the configuration of a MailScan run.
//
// Values are layered: built-in defaults, then the optional YAML config
// file (.mailscan), then command line flags that the user set explicitly.
// The package also reads seed URL files.
package config
