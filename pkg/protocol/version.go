package protocol

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultVersion is the protocol version compiled into the binary, used when
// no PROTOCOL_VERSION file is found.
const DefaultVersion = "0.1.0"

// Version is a semver triple compared component-wise.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses "major.minor.patch" with non-negative integer parts.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid protocol version %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid protocol version %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Compatibility of a peer version against ours.
type Compatibility int

const (
	CompatExact Compatibility = iota
	CompatPatchDiffers
	CompatMinorDiffers // continue with a warning
	CompatIncompatible // major mismatch
)

// CheckCompatibility compares two versions component-wise.
func CheckCompatibility(ours, theirs Version) Compatibility {
	switch {
	case ours.Major != theirs.Major:
		return CompatIncompatible
	case ours.Minor != theirs.Minor:
		return CompatMinorDiffers
	case ours.Patch != theirs.Patch:
		return CompatPatchDiffers
	default:
		return CompatExact
	}
}

// OwnVersion resolves the worker's protocol version: HEDDLE_PROTOCOL_VERSION
// env override first, then the PROTOCOL_VERSION file next to the executable,
// then one in the working directory, then DefaultVersion.
func OwnVersion() string {
	if v := os.Getenv("HEDDLE_PROTOCOL_VERSION"); v != "" {
		return strings.TrimSpace(v)
	}
	if exe, err := os.Executable(); err == nil {
		if v := readVersionFile(filepath.Join(filepath.Dir(exe), "PROTOCOL_VERSION")); v != "" {
			return v
		}
	}
	if v := readVersionFile("PROTOCOL_VERSION"); v != "" {
		return v
	}
	return DefaultVersion
}

func readVersionFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line)
}
