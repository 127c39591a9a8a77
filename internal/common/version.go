package common

import (
	"strconv"
	"strings"
)

// These variables are set via ldflags during build
var (
	// Version is the semantic version from .version file
	Version = "dev"
	// Build is the build timestamp from .version file
	Build = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// GetVersion returns the full version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns the complete version information
func GetFullVersion() string {
	if Build != "unknown" {
		return Version + "-" + Build
	}
	return Version
}

// IsNewerVersion reports whether remote is a strictly newer dotted version
// than local. Missing segments count as zero, so "1.2" == "1.2.0".
func IsNewerVersion(remote, local string) bool {
	remoteParts := strings.Split(remote, ".")
	localParts := strings.Split(local, ".")

	n := len(remoteParts)
	if len(localParts) > n {
		n = len(localParts)
	}

	for i := 0; i < n; i++ {
		remotePart := versionSegment(remoteParts, i)
		localPart := versionSegment(localParts, i)
		if remotePart > localPart {
			return true
		}
		if remotePart < localPart {
			return false
		}
	}
	return false
}

func versionSegment(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0
	}
	return v
}
