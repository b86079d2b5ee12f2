package main

import (
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "search": true, "browse": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run a named command vs the MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	// Global flags (--help, --version, --config-dir, --verbose) → CLI
	return len(arg) > 1 && arg[0] == '-'
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _____ _     _      __            _
  |  ___(_)___| |__  / _| __ _  ___| |_ ___
  | |_  | / __| '_ \| |_ / _' |/ __| __/ __|
  |  _| | \__ \ | | |  _| (_| | (__| |_\__ \
  |_|   |_|___/_| |_|_|  \__,_|\___|\__|___/

  Seafood nutrition search

  Usage: fishfacts <command> [options]
         fishfacts --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	args := os.Args
	if !isCLIMode(args) {
		// Unknown argument + terminal → show error (don't start MCP server)
		if len(args) >= 2 && isTerminal() {
			fmt.Fprintf(os.Stderr, "error: unknown command %q\n", args[1])
			fmt.Fprintf(os.Stderr, "Run 'fishfacts --help' for usage.\n")
			os.Exit(1)
		}
		// MCP server mode (default for piped stdio)
		args = []string{args[0], "mcp"}
	}

	env := &appEnv{}
	err := newCLIApp(env).Run(args)
	env.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
