package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dcc/cfg"
	"dcc/common"
	"dcc/irtext"
	"dcc/lower"
	"dcc/report"

	"github.com/ComedicChimera/olive"

	// Register the built-in targets.
	_ "dcc/a64"
	_ "dcc/classic"
	_ "dcc/llgen"
)

// execBuildCommand executes the build subcommand and handles all its errors.
func execBuildCommand(result *olive.ArgParseResult) {
	prof := buildProfileFor(result)

	irPath, _ := result.PrimaryArg()
	ns := loadNamespace(irPath)
	if !setEntry(ns, prof.Entry) {
		report.ReportFatal("entry function `%s` is not defined in `%s`", prof.Entry, irPath)
	}

	report.ReportBuildHeader(prof.Targets)

	if err := os.MkdirAll(prof.OutputDir, 0o777); err != nil {
		report.ReportFatal("failed to create output directory `%s`: %s", prof.OutputDir, err.Error())
	}

	// Lower the namespace for every requested target.  Each build owns its
	// own code object and only reads the shared namespace, so independent
	// targets can be lowered fully in parallel.
	ctx := lower.NewContext()
	done := make(chan struct{})

	for _, triple := range prof.Targets {
		go func(triple string) {
			defer func() { done <- struct{}{} }()

			// Panics out of the lowering core (eg. a duplicate emission) are
			// programming errors, not build errors.
			defer func() {
				if r := recover(); r != nil {
					report.ReportICE("while lowering `%s` for `%s`: %v", irPath, triple, r)
				}
			}()

			co, err := lower.Build(ctx, irPath, ns, triple)
			if err != nil {
				report.ReportBuildError(irPath, err)
				return
			}

			outPath := outputPath(prof.OutputDir, irPath, triple)
			writeOutputFile(outPath, co.Render())
		}(triple)
	}

	for range prof.Targets {
		<-done
	}

	report.ReportBuildFinished(prof.OutputDir)
	if report.AnyErrors() {
		os.Exit(1)
	}
}

// setEntry applies a profile's entry override to a loaded namespace.  An
// override naming a function the namespace does not define is rejected.
func setEntry(ns *cfg.Namespace, entry string) bool {
	if entry == "" {
		return true
	}

	if _, ok := ns.Lookup(entry); !ok {
		return false
	}

	ns.Entry = entry
	return true
}

// loadNamespace reads, parses, and verifies a namespace file.
func loadNamespace(irPath string) *cfg.Namespace {
	if filepath.Ext(irPath) != common.DCCFileExt {
		report.ReportBuildWarning(irPath, "expected a `%s` file", common.DCCFileExt)
	}

	f, err := os.Open(irPath)
	if err != nil {
		report.ReportFatal("failed to open namespace file at `%s`: %s", irPath, err.Error())
	}
	defer f.Close()

	ns, err := irtext.Parse(irPath, f)
	if err != nil {
		if perr, ok := err.(*irtext.Error); ok {
			report.ReportParseError(irPath, &perr.Pos, perr.Msg)
			os.Exit(1)
		}

		report.ReportFatal("failed to read namespace file at `%s`: %s", irPath, err.Error())
	}

	if err := cfg.Verify(ns); err != nil {
		report.ReportBuildError(irPath, err)
		os.Exit(1)
	}

	return ns
}

// outputPath computes the output file path for one lowered code object.
func outputPath(outDir, irPath, triple string) string {
	base := strings.TrimSuffix(filepath.Base(irPath), filepath.Ext(irPath))
	return filepath.Join(outDir, fmt.Sprintf("%s.%s.s", base, triple))
}

// writeOutputFile is used to quickly write an output file for the compiler.
func writeOutputFile(fpath, content string) {
	file, err := os.OpenFile(fpath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		report.ReportFatal("failed to open output file `%s`: %s", fpath, err.Error())
	}
	defer file.Close()

	if _, err := file.WriteString(content); err != nil {
		report.ReportFatal("failed to write output to file `%s`: %s", fpath, err.Error())
	}
}
