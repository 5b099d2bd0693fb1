// Package version parses and compares schema versions and resolves the
// current and target versions of the persisted state.
package version

import (
	"strings"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

// Version is a major.minor.patch schema version.
type Version = semver.Version

// Parse parses a strict major.minor.patch string. A leading "v" is accepted;
// pre-release and build suffixes are rejected.
func Parse(s string) (Version, error) {
	v, err := semver.Parse(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return Version{}, types.MarkAs(err, types.ErrInvalidVersion, "parse version "+quote(s))
	}
	if len(v.Pre) > 0 || len(v.Build) > 0 {
		return Version{}, errors.Wrapf(types.ErrInvalidVersion, "%q: pre-release and build metadata are not supported", s)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for static step tables.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare orders a and b by major, then minor, then patch. It returns a
// negative number when a < b, zero when equal, positive when a > b.
func Compare(a, b Version) int {
	return a.Compare(b)
}

// CompareStrings parses both operands and compares them.
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb), nil
}

func quote(s string) string {
	return `"` + s + `"`
}
