package main

import (
	"os"
	"strings"

	"github.com/Alia5/keyscan/internal/config"
	"github.com/Alia5/keyscan/internal/configpaths"
	"github.com/Alia5/keyscan/internal/log"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {

	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("keyscan"),
		kong.Description("Debounce and classify push-button input"),
		kong.UsageOnError(),
		// Config files in priority order; flags and env override them.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, trace, closeFiles, err := log.Setup(cli.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	ctx.Bind(trace)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

// findUserConfig looks for --config before kong parses, so the file can
// take part in parsing.
func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("KEYSCAN_CONFIG")
}
