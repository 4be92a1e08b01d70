package report

import (
	"dcc/common"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// displayICE displays an internal compiler error message.
func displayICE(message string) {
	fmt.Printf("%s %s\n", pterm.LightRed("internal compiler error:"), message)
	fmt.Print("This error was not supposed to happen: please open an issue on the dcc issue tracker\n\n")
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	fmt.Printf("%s %s\n\n", pterm.LightRed("fatal error:"), message)
}

// displayBuildMessage displays a build error or warning.  The label is the
// string to prefix the message with: eg. if we want to display an error, the
// label is "error".
func displayBuildMessage(label, reprPath, message string) {
	coloredLabel := pterm.Red(label)
	if label == "warning" {
		coloredLabel = pterm.Yellow(label)
	}

	fmt.Printf("%s: %s: %s\n\n", reprPath, coloredLabel, message)
}

// -----------------------------------------------------------------------------

// displayBuildHeader displays the header before a build run begins.
func displayBuildHeader(triples []string) {
	fmt.Println("dcc " + pterm.Cyan("v"+common.DCCVersion))
	fmt.Printf("lowering for: %s\n\n", strings.Join(triples, ", "))
}

// displayBuildFinished displays the concluding message of a build run.
func displayBuildFinished(success bool, outputPath string) {
	if success {
		fmt.Printf("%s wrote output to `%s`\n", pterm.Green("done:"), outputPath)
	} else {
		fmt.Println(pterm.Red("build failed"))
	}
}
