package zkbatcher

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
)

const undefined = "undefined"

// Populated during build, don't touch!
var (
	Version   = "v0.1.0"
	GitRev    = undefined
	GitBranch = undefined
	BuildDate = "Fri, 17 Jun 1988 01:58:00 +0200"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string
	GitRev    string
	GitBranch string
	BuildDate string
	GoVersion string
	OS        string
	Arch      string
	Modified  bool
}

// GetBuildInfo returns the build information of the running binary. When the binary
// was built without ldflags the git revision is taken from the embedded vcs settings.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitRev:    GitRev,
		GitBranch: GitBranch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fillFromVCS(bi.Settings)
	}
	return info
}

func (b *BuildInfo) fillFromVCS(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if b.GitRev == undefined {
				b.GitRev = s.Value
			}
		case "vcs.time":
			if b.BuildDate == "" {
				b.BuildDate = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
}

// LogFields returns the build information as key/value pairs for structured logging
func (b BuildInfo) LogFields() []interface{} {
	return []interface{}{
		"version", b.Version,
		"gitRevision", b.GitRev,
		"gitBranch", b.GitBranch,
		"goVersion", b.GoVersion,
		"built", b.BuildDate,
		"os/arch", b.OS + "/" + b.Arch,
		"modified", b.Modified,
	}
}

func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("zkbatcher\n")
	rows := [][2]string{
		{"Version", b.Version},
		{"Git revision", b.GitRev},
		{"Git branch", b.GitBranch},
		{"Go version", b.GoVersion},
		{"Built", b.BuildDate},
		{"OS/Arch", b.OS + "/" + b.Arch},
	}
	for _, row := range rows {
		fmt.Fprintf(&sb, "%-14s%s\n", row[0]+":", row[1])
	}
	if b.Modified {
		sb.WriteString("Built from a modified working tree\n")
	}
	return sb.String()
}

// PrintVersion prints version info into the provided io.Writer.
func PrintVersion(w io.Writer) {
	fmt.Fprint(w, GetBuildInfo().String())
}
