// Package config holds the root command line of keyscan.
package config

import (
	"github.com/Alia5/keyscan/internal/cmd"
	"github.com/Alia5/keyscan/internal/log"
)

// CLI is the root kong model. Every flag can also come from a config file
// found through configpaths or from its KEYSCAN_* environment variable.
type CLI struct {
	Config string     `help:"Configuration file (json, yaml or toml)" env:"KEYSCAN_CONFIG" type:"path"`
	Log    log.Config `embed:"" prefix:"log."`

	Run       cmd.Run           `cmd:"" help:"Scan a live key source and log its events"`
	Replay    cmd.Replay        `cmd:"" help:"Run a key script through the scanner and print its events"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
	Service   cmd.Service       `cmd:"" help:"Manage the keyscan system service"`
}
