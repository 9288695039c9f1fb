package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/usbdfs/internal/prof"
)

// LogFlags configures logging.
type LogFlags struct {
	Level  string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"USBDFS_LOG_LEVEL"`
	Format string `help:"Log format: console or json" default:"console" enum:"console,json" env:"USBDFS_LOG_FORMAT"`
	Color  string `help:"Colour console logs: auto, always or never" default:"auto" enum:"auto,always,never" env:"USBDFS_LOG_COLOR"`
	File   string `help:"Also write logs to this file" type:"path" env:"USBDFS_LOG_FILE"`
}

// ProfFlags selects runtime profiles written when the command finishes.
type ProfFlags struct {
	CPU  string `help:"Write a CPU profile" type:"path" env:"USBDFS_PROF_CPU"`
	Heap string `help:"Write a heap profile" type:"path" env:"USBDFS_PROF_HEAP"`
}

func (f ProfFlags) options() prof.Options {
	o := prof.Options{CPU: f.CPU}
	if f.Heap != "" {
		o.Snapshots = map[prof.Profile]string{prof.ProfileHeap: f.Heap}
	}
	return o
}

// CLI is the root command.
type CLI struct {
	Log  LogFlags  `embed:"" prefix:"log-"`
	Prof ProfFlags `embed:"" prefix:"prof-"`

	Config  string           `help:"Configuration file (JSON, YAML or TOML)" type:"path" placeholder:"FILE" env:"USBDFS_CONFIG"`
	Version kong.VersionFlag `help:"Print the version and exit"`

	Layout    LayoutCmd    `cmd:"" help:"Print the packet memory layout of a device profile"`
	Enumerate EnumerateCmd `cmd:"" help:"Enumerate a device profile with the simulated host"`
}

// findUserConfig returns the --config argument, or USBDFS_CONFIG.
func findUserConfig(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("USBDFS_CONFIG")
}

// configPaths returns the candidate configuration files per format. An
// explicit file is the only candidate of its format.
func configPaths(user string) (jsonPaths, yamlPaths, tomlPaths []string) {
	if user != "" {
		switch strings.ToLower(filepath.Ext(user)) {
		case ".yaml", ".yml":
			return nil, []string{user}, nil
		case ".toml":
			return nil, nil, []string{user}
		default:
			return []string{user}, nil, nil
		}
	}

	dirs := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "usbdfs"))
	}
	for _, dir := range dirs {
		base := filepath.Join(dir, "usbdfs")
		if dir != "." {
			base = filepath.Join(dir, "config")
		}
		jsonPaths = append(jsonPaths, base+".json")
		yamlPaths = append(yamlPaths, base+".yaml", base+".yml")
		tomlPaths = append(tomlPaths, base+".toml")
	}
	return jsonPaths, yamlPaths, tomlPaths
}
