package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

const (
	// Version of the contract code, major*1_000_000 + minor*1_000 + patch.
	Version = 1_000 // 0.1.0

	// MinUpdatableVersion is the oldest deployed version the current code
	// can replace. Storage layout has not changed since the first release,
	// which is the current one, so no update is accepted until Version is
	// raised.
	MinUpdatableVersion = Version

	// ErrUnsupportedVersion is thrown by CheckUpdate if deployed contract is
	// older than MinUpdatableVersion.
	ErrUnsupportedVersion = "update from unsupported version"

	// ErrSameVersion is thrown by CheckUpdate if deployed contract is of the
	// current version.
	ErrSameVersion = "contract is already of this version"
)

// CheckUpdate panics if contract of version from can't be replaced with the
// current code.
func CheckUpdate(from int) {
	if from == Version {
		panic(ErrSameVersion + ": " + std.Itoa(Version, 10))
	}
	if from < MinUpdatableVersion {
		panic(ErrUnsupportedVersion + ": " + std.Itoa(from, 10) + " < " + std.Itoa(MinUpdatableVersion, 10))
	}
}

// WithVersion adds version of the running code to the update data, so that
// _deploy of the new code can check it with CheckUpdate.
func WithVersion(data any) []any {
	if data == nil {
		return []any{Version}
	}
	return append(data.([]any), Version)
}
