package version

import (
	"fmt"
	"strconv"
	"strings"
)

// BumpType represents the type of version bump to apply.
type BumpType string

const (
	// BumpNone indicates no version change is due.
	BumpNone BumpType = "none"
	// BumpMajor indicates a major version bump (breaking changes).
	BumpMajor BumpType = "major"
	// BumpMinor indicates a minor version bump (new features).
	BumpMinor BumpType = "minor"
	// BumpPatch indicates a patch version bump (bug fixes).
	BumpPatch BumpType = "patch"
	// BumpPrerelease indicates a prerelease version bump.
	BumpPrerelease BumpType = "prerelease"
)

// IsValid returns true if the bump type is valid.
func (b BumpType) IsValid() bool {
	switch b {
	case BumpNone, BumpMajor, BumpMinor, BumpPatch, BumpPrerelease:
		return true
	default:
		return false
	}
}

// String returns the string representation of the bump type.
func (b BumpType) String() string {
	return string(b)
}

// ParseBumpType parses a string into a BumpType.
func ParseBumpType(s string) (BumpType, error) {
	bt := BumpType(s)
	if !bt.IsValid() {
		return "", fmt.Errorf("%w: %q (must be none, major, minor, patch, or prerelease)", ErrInvalidBumpType, s)
	}
	return bt, nil
}

// VersionBump is a value object representing a version bump operation.
type VersionBump struct {
	bumpType   BumpType
	prerelease Prerelease
}

// NewVersionBump creates a new VersionBump for the specified type.
func NewVersionBump(bumpType BumpType) VersionBump {
	return VersionBump{bumpType: bumpType}
}

// NewPrereleaseBump creates a new VersionBump that starts or advances a
// prerelease line using the given identifier.
func NewPrereleaseBump(prerelease Prerelease) VersionBump {
	return VersionBump{
		bumpType:   BumpPrerelease,
		prerelease: prerelease,
	}
}

// Type returns the bump type.
func (b VersionBump) Type() BumpType {
	return b.bumpType
}

// PrereleaseIdentifier returns the prerelease identifier for prerelease bumps.
func (b VersionBump) PrereleaseIdentifier() Prerelease {
	return b.prerelease
}

// Apply applies the version bump to a semantic version and returns the new version.
func (b VersionBump) Apply(v SemanticVersion) SemanticVersion {
	switch b.bumpType {
	case BumpMajor:
		return SemanticVersion{
			major: v.major + 1,
			minor: 0,
			patch: 0,
		}

	case BumpMinor:
		return SemanticVersion{
			major: v.major,
			minor: v.minor + 1,
			patch: 0,
		}

	case BumpPatch:
		// If current version has a prerelease, just remove it (releasing the prerelease)
		if v.IsPrerelease() {
			return v.WithoutPrerelease()
		}
		return SemanticVersion{
			major: v.major,
			minor: v.minor,
			patch: v.patch + 1,
		}

	case BumpPrerelease:
		if v.IsPrerelease() {
			// Advance the existing prerelease line in place.
			return v.WithPrerelease(incrementPrerelease(v.prerelease)).WithoutMetadata()
		}
		if b.prerelease != "" {
			// Not yet a prerelease, open a new line on the next minor.
			return SemanticVersion{
				major:      v.major,
				minor:      v.minor + 1,
				patch:      0,
				prerelease: b.prerelease + ".1",
			}
		}
		return v

	default:
		return v
	}
}

// incrementPrerelease advances the trailing numeric identifier of a prerelease
// label, so rc.1 becomes rc.2. A label without a numeric tail gets ".1"
// appended.
func incrementPrerelease(pre Prerelease) Prerelease {
	parts := strings.Split(string(pre), ".")
	last := parts[len(parts)-1]
	if n, err := strconv.ParseUint(last, 10, 64); err == nil {
		parts[len(parts)-1] = strconv.FormatUint(n+1, 10)
		return Prerelease(strings.Join(parts, "."))
	}
	return pre + ".1"
}

// BumpMajorVersion returns a new version with the major component incremented.
func BumpMajorVersion(v SemanticVersion) SemanticVersion {
	return NewVersionBump(BumpMajor).Apply(v)
}

// BumpMinorVersion returns a new version with the minor component incremented.
func BumpMinorVersion(v SemanticVersion) SemanticVersion {
	return NewVersionBump(BumpMinor).Apply(v)
}

// BumpPatchVersion returns a new version with the patch component incremented.
func BumpPatchVersion(v SemanticVersion) SemanticVersion {
	return NewVersionBump(BumpPatch).Apply(v)
}
