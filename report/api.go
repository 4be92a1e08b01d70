package report

import (
	"fmt"
	"os"
)

// ReportICE reports an internal compiler error.  These are errors that
// specifically result from a bug or unexpected condition occurring within the
// compiler: they are not intended to ever happen.  These errors are always
// displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error.  These are errors that should cause the
// whole program to stop immediately.  However, they are expected errors that
// generally result from invalid configuration of some form: a missing build
// profile, an unwritable output path, etc.
func ReportFatal(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// ReportBuildError reports an error which aborted the build of one code
// object: a failed lowering, a malformed namespace, an unknown triple.  The
// reprPath is the representative path of the namespace file being built.
func ReportBuildError(reprPath string, err error) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.isErr = true

	if rep.logLevel > LogLevelSilent {
		displayBuildMessage("error", reprPath, err.Error())
	}
}

// ReportBuildWarning reports a build warning.  The arguments are of the same
// form as those to ReportBuildError.
func ReportBuildWarning(reprPath string, msg string, args ...interface{}) {
	if rep.logLevel > LogLevelWarn {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayBuildMessage("warning", reprPath, fmt.Sprintf(msg, args...))
	}
}

// ReportParseError reports an error in a namespace file at a given position.
func ReportParseError(reprPath string, pos *TextPosition, msg string) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.isErr = true

	if rep.logLevel > LogLevelSilent {
		displayBuildMessage("error", fmt.Sprintf("%s:%d", reprPath, pos.Line), msg)
	}
}

// AnyErrors returns whether or not any errors were detected.
func AnyErrors() bool {
	return rep.isErr
}

// -----------------------------------------------------------------------------
// Below are the "aesthetic" reporting functions that only run if the log level
// is verbose.  These provide additional information about the build process so
// as to make the compiler more friendly.

// ReportBuildHeader reports the pre-build header: information about the
// compiler's current configuration (version and requested targets).
func ReportBuildHeader(triples []string) {
	if rep.logLevel == LogLevelVerbose {
		displayBuildHeader(triples)
	}
}

// ReportBuildFinished reports the concluding message for a build run.
func ReportBuildFinished(outputPath string) {
	if rep.logLevel == LogLevelVerbose {
		displayBuildFinished(!rep.isErr, outputPath)
	}
}
