// Package driver is the top-level package for the dcc command line tool: it
// parses arguments, loads build profiles, and runs the lowering phases.
package driver

import (
	"fmt"
	"os"

	"dcc/common"
	"dcc/report"

	"github.com/ComedicChimera/olive"
	"github.com/xyproto/env/v2"
)

// Execute is the main entry point for the `dcc` CLI utility.
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("dcc", "dcc is a tool for lowering compiled namespaces into machine code", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue(env.Str("DCC_LOG_LEVEL", "verbose"))

	buildCmd := cli.AddSubcommand("build", "lower a namespace file", true)
	buildCmd.AddPrimaryArg("ir-file", "the path to the namespace file to build", true)
	buildCmd.AddStringArg("profile", "p", "the path of the build profile to use", false)
	buildCmd.AddStringArg("target", "t", "a single target triple to lower for", false)
	buildCmd.AddStringArg("out", "o", "the output directory", false)

	cli.AddSubcommand("version", "print the dcc version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.InitReporter(report.LogLevelVerbose)
		report.ReportFatal(err.Error())
	}

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		report.InitReporter(report.LogLevelFromName(result.Arguments["loglevel"].(string)))
		execBuildCommand(subResult)
	case "version":
		report.InitReporter(report.LogLevelVerbose)
		fmt.Println("dcc version " + common.DCCVersion)
	}
}

// buildProfileFor assembles the effective build profile for a build command:
// an explicit profile file if one was given, the default profile otherwise,
// with single-argument overrides applied on top.
func buildProfileFor(result *olive.ArgParseResult) *BuildProfile {
	prof := DefaultProfile()
	if profPath, ok := result.Arguments["profile"]; ok {
		loaded, ok := LoadProfile(profPath.(string))
		if !ok {
			return nil
		}
		prof = loaded
	}

	if triple, ok := result.Arguments["target"]; ok {
		prof.Targets = []string{triple.(string)}
	}

	if outDir, ok := result.Arguments["out"]; ok {
		prof.OutputDir = outDir.(string)
	}

	return prof
}
