// Package main provides the mdfind CLI application.
//
// mdfind searches file metadata under one or more directory scopes using a
// typed predicate, optionally staying alive to report live changes.
package main

import (
	"flag"
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	// Parse command.
	flag.Parse()

	// Handle version flag.
	if *showVersion {
		fmt.Printf("mdfind %s\n", version)
		return nil
	}

	// Get command.
	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "search":
		return runSearchCommand(*configPath, args[1:])
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "attrs":
		return runAttrsCommand(args[1:])
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runSearchCommand runs the search command.
func runSearchCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	opts := bindSearchFlags(fs)
	format := fs.String("format", "", "output format (table, json, simple)")
	compact := fs.Bool("compact", false, "compact output")
	tree := fs.Bool("tree", false, "show results as a path hierarchy")
	groupBy := fs.String("group-by", "", "group results by attributes (comma-separated)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &searchCommand{
		opts:       *opts,
		scopes:     fs.Args(),
		format:     *format,
		compact:    *compact,
		tree:       *tree,
		groupBy:    *groupBy,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runWatchCommand runs the watch command.
func runWatchCommand(configPath string, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	opts := bindSearchFlags(fs)
	format := fs.String("format", "simple", "output format (table, simple)")
	diffOnly := fs.Bool("diff", true, "print only added/removed/changed items")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &watchCommand{
		opts:       *opts,
		scopes:     fs.Args(),
		format:     *format,
		diffOnly:   *diffOnly,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runAttrsCommand runs the attrs command.
func runAttrsCommand(args []string) error {
	fs := flag.NewFlagSet("attrs", flag.ExitOnError)
	format := fs.String("format", "table", "output format (table, simple)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &attrsCommand{
		format: *format,
	}
	return cmd.Execute()
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage() error {
	usage := `mdfind - file metadata search tool

Usage:
  mdfind [flags] <command> [command flags] [scope ...]

Commands:
  search      Run a query to completion and print the results
  watch       Run a query and keep reporting live changes
  attrs       List the attribute catalog
  config      Configuration management (show, path, reset)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Predicate Flags (search and watch):
  -name             File name contains (case/diacritic insensitive)
  -ext              File extension equals (e.g. pdf)
  -content-type     Content type equals (e.g. public.image)
  -larger           File size at least (e.g. 10MB, 1GiB)
  -smaller          File size below (e.g. 500KB)
  -modified-within  Modified within the last N days
  -modified-today   Modified today
  -case-sensitive   Make -name matching case sensitive

Search Command Flags:
  -format     Output format (table, json, simple)
  -compact    Compact output
  -tree       Show results as a path hierarchy
  -group-by   Group results by attributes (comma-separated)

Watch Command Flags:
  -format     Output format (table, simple)
  -diff       Print only added/removed/changed items (default: true)

Examples:
  # All PDFs under the home directory
  mdfind search -ext pdf ~

  # Large screenshots modified this week
  mdfind search -name screenshot -larger 1MB -modified-within 7 ~/Desktop

  # Watch a directory for new images
  mdfind watch -content-type public.image ~/Downloads

  # Group results by extension
  mdfind search -larger 100MB -group-by fileExtension ~

  # List known attributes
  mdfind attrs

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
