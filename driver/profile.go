package driver

import (
	"io/ioutil"
	"os"

	"dcc/common"
	"dcc/report"

	"github.com/pelletier/go-toml"
)

// BuildProfile stores the build configuration for one lowering run: which
// targets to lower for and where to put the results.
type BuildProfile struct {
	// Name is the display name of the profile.
	Name string

	// Targets are the architecture triples to lower for.
	Targets []string

	// OutputDir is the directory the rendered code objects are written to.
	OutputDir string

	// Entry is the designated entry function identity.  It overrides
	// whatever the namespace file declares.
	Entry string
}

// tomlProfile represents a build profile as it is encoded in TOML.
type tomlProfile struct {
	Name       string   `toml:"name"`
	DCCVersion string   `toml:"dcc-version"`
	Targets    []string `toml:"targets"`
	OutputDir  string   `toml:"output-dir"`
	Entry      string   `toml:"entry"`
}

// DefaultProfile returns the profile used when no profile file is given.
func DefaultProfile() *BuildProfile {
	return &BuildProfile{
		Name:      "default",
		Targets:   []string{common.DefaultTriple},
		OutputDir: ".",
	}
}

// LoadProfile loads and validates a build profile.  `path` is the path to
// the profile file.  This function returns the deserialized profile and a
// success boolean.
func LoadProfile(path string) (*BuildProfile, bool) {
	f, err := os.Open(path)
	if err != nil {
		report.ReportFatal("unable to open profile file at `%s`: %s", path, err.Error())
		return nil, false
	}
	defer f.Close()

	buff, err := ioutil.ReadAll(f)
	if err != nil {
		report.ReportFatal("error reading profile file at `%s`: %s", path, err.Error())
		return nil, false
	}

	tomlProf := &tomlProfile{}
	if err := toml.Unmarshal(buff, tomlProf); err != nil {
		report.ReportFatal("error parsing profile file at `%s`: %s", path, err.Error())
		return nil, false
	}

	return validateProfile(path, tomlProf)
}

// validateProfile checks that the profile contents are valid and converts
// them into the final build profile.
func validateProfile(path string, tomlProf *tomlProfile) (*BuildProfile, bool) {
	if tomlProf.Name == "" {
		report.ReportFatal("profile at `%s` is missing a name", path)
		return nil, false
	}

	if len(tomlProf.Targets) == 0 {
		report.ReportFatal("profile `%s` names no targets", tomlProf.Name)
		return nil, false
	}

	if tomlProf.DCCVersion != "" && tomlProf.DCCVersion != common.DCCVersion {
		report.ReportBuildWarning(path, "profile `%s` was written for dcc v%s (current: v%s)",
			tomlProf.Name,
			tomlProf.DCCVersion,
			common.DCCVersion,
		)
	}

	prof := &BuildProfile{
		Name:      tomlProf.Name,
		Targets:   tomlProf.Targets,
		OutputDir: tomlProf.OutputDir,
		Entry:     tomlProf.Entry,
	}
	if prof.OutputDir == "" {
		prof.OutputDir = "."
	}

	return prof, true
}
