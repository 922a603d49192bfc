// SPDX-License-Identifier: MIT
//
// Package build reports what binary is running. Values come from linker
// flags set by the release build, for example:
//
//	go build -ldflags "-X vocalfx/pkg/build.buildVersion=0.3.0 -X vocalfx/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Anything the linker did not set is filled from the module and VCS data the
// Go toolchain embeds, so plain `go build` binaries still report a commit.
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// DefaultName is used when no name was linked in.
const DefaultName = "vocalfx"

// Info is the build description shown by --version and the server.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Time        string `json:"time"`
	Commit      string `json:"commit"`
	Version     string `json:"version"`
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

const unknown = "unknown"

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultInfo()
)

var readBuildInfo = debug.ReadBuildInfo

func defaultInfo() *Info {
	return &Info{
		Name:        DefaultName,
		Description: "Real-time phase vocoder: autotune, vocoder and formant shifting",
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize resolves the build information. Linker values win; the
// embedded build info fills the rest. The returned error lists the fields
// that stayed unknown. It is informational: GetBuildFlags is usable either
// way.
func Initialize() error {
	info := defaultInfo()
	if buildName != "" {
		info.Name = buildName
	}
	set(&info.Time, buildTime)
	set(&info.Commit, buildCommit)
	set(&info.Version, buildVersion)

	if bi, ok := readBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			set(&info.Version, v)
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if len(s.Value) > 12 {
					s.Value = s.Value[:12]
				}
				set(&info.Commit, s.Value)
			case "vcs.time":
				set(&info.Time, s.Value)
			}
		}
	}
	buildFlags = info

	var errs []error
	if info.Time == unknown {
		errs = append(errs, errors.New("build time is unknown"))
	}
	if info.Commit == unknown {
		errs = append(errs, errors.New("build commit is unknown"))
	}
	if info.Version == unknown {
		errs = append(errs, errors.New("build version is unknown"))
	}
	return errors.Join(errs...)
}

// set fills *dst with v unless dst already holds a real value.
func set(dst *string, v string) {
	if *dst == unknown && v != "" {
		*dst = v
	}
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() Info {
	return *buildFlags
}
