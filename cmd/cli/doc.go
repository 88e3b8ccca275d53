// Package cli assembles the roll-deps command-line application: the Cobra
// root command, configuration loading, and structured logging shared by the
// roll subcommand.
package cli
