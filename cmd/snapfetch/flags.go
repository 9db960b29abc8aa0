package main

import "flag"

type cliFlags struct {
	configFile string
}

func parseFlags() cliFlags {
	configFile := flag.String("config", "", "Path to the YAML/JSON configuration file. Defaults are used if not set.")
	configFileAlias := flag.String("c", "", "Alias for -config")
	flag.Parse()

	if *configFile == "" && *configFileAlias != "" {
		*configFile = *configFileAlias
	}

	return cliFlags{configFile: *configFile}
}
