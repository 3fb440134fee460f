//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// systemctl is replaced in tests.
var systemctl = func(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func install(logger *slog.Logger, unitPath, configFile string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	if configFile != "" {
		if configFile, err = filepath.Abs(configFile); err != nil {
			return err
		}
	}

	if err := os.WriteFile(unitPath, []byte(unitContent(exe, configFile)), 0o644); err != nil {
		return err
	}
	name := filepath.Base(unitPath)
	for _, args := range [][]string{{"daemon-reload"}, {"enable", name}, {"restart", name}} {
		if err := systemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("service installed", "unit", unitPath, "exe", exe)
	return nil
}

func uninstall(logger *slog.Logger, unitPath string) error {
	name := filepath.Base(unitPath)
	var errs []error
	if err := systemctl("stop", name); err != nil {
		errs = append(errs, err)
	}
	if err := systemctl("disable", name); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := systemctl("daemon-reload"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("service removed", "unit", unitPath)
	return nil
}

// unitContent runs the scanner on the GPIO source; a terminal is never
// attached to a service.
func unitContent(exe, configFile string) string {
	start := fmt.Sprintf("%q run --source=gpio", exe)
	if configFile != "" {
		start = fmt.Sprintf("%q --config=%q run --source=gpio", exe, configFile)
	}
	return fmt.Sprintf(`[Unit]
Description=keyscan push-button scanner

[Service]
Type=simple
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, start, filepath.Dir(exe))
}
