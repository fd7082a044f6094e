// Command distributor is the process entrypoint: parse the config file
// location, build the App, and run it until SIGINT/SIGTERM.
// Grounded on the teacher's cmd/main.go (flag + env-var fallback + default
// path, app.New/Run, os.Exit(1) on failure).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/resolveai/log-distributor/internal/app"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "path to configuration file")
	flag.Parse()

	if configFile == "" {
		if envConfigFile := os.Getenv("DISTRIBUTOR_CONFIG_FILE"); envConfigFile != "" {
			configFile = envConfigFile
		} else {
			configFile = "/app/configs/config.yaml"
		}
	}

	fmt.Printf("using configuration file: %s\n", configFile)

	application, err := app.New(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}
