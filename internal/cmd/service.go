package cmd

import "log/slog"

// Service manages the keyscan system service.
type Service struct {
	Install   ServiceInstall   `cmd:"" help:"Install and start keyscan as a system service"`
	Uninstall ServiceUninstall `cmd:"" help:"Stop and remove the keyscan system service"`
}

// ServiceInstall writes the unit for "keyscan run" and starts it.
type ServiceInstall struct {
	ConfigFile string `name:"with-config" help:"Configuration file the service runs with" type:"existingfile"`
	Unit       string `help:"Unit file to write" default:"/etc/systemd/system/keyscan.service"`
}

// ServiceUninstall stops the service and removes its unit.
type ServiceUninstall struct {
	Unit string `help:"Unit file to remove" default:"/etc/systemd/system/keyscan.service"`
}

func (s *ServiceInstall) Run(logger *slog.Logger) error {
	return install(logger, s.Unit, s.ConfigFile)
}

func (s *ServiceUninstall) Run(logger *slog.Logger) error {
	return uninstall(logger, s.Unit)
}
