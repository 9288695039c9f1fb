// Command usbdfs inspects device profiles for the usbdfs engine.
//
//	usbdfs layout keyboard.yaml            # packet memory placement
//	usbdfs enumerate --address 9 gadget.toml # simulated host enumeration
//
// Flags can also be set from a configuration file (usbdfs.json, usbdfs.yaml
// or usbdfs.toml in the working directory or the user configuration
// directory, or the file named by --config) and from USBDFS_* environment
// variables. Command-line flags take precedence.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/ardnew/usbdfs/internal/log"
	"github.com/ardnew/usbdfs/internal/prof"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "usbdfs:", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command. Command output goes to
// stdout; logs and usage go to stderr.
func run(args []string, stdout, stderr io.Writer) (err error) {
	var cli CLI
	parser, err := newParser(&cli, args, stdout, stderr)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger, closers, err := log.Setup(log.Options{
		Level:  cli.Log.Level,
		Format: cli.Log.Format,
		Color:  log.Color(cli.Log.Color),
		File:   cli.Log.File,
		Stdout: stderr,
		Stderr: stderr,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	session, err := prof.Start(cli.Prof.options())
	if err != nil {
		return fmt.Errorf("profiling: %w", err)
	}
	defer func() {
		err = errors.Join(err, session.Stop())
	}()

	kctx.Bind(logger)
	return kctx.Run()
}

// newParser builds the command-line parser for cli. Configuration files are
// located before parsing so their values become flag defaults.
func newParser(cli *CLI, args []string, stdout, stderr io.Writer) (*kong.Kong, error) {
	jsonPaths, yamlPaths, tomlPaths := configPaths(findUserConfig(args))
	return kong.New(cli,
		kong.Name("usbdfs"),
		kong.Description(description()),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": Version},
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)
}
