// Package version carries build identification, stamped at link time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.0 ..."
//
// It identifies the binary, not the analysis algorithm; exported beat
// sets are tagged with the algorithm revision separately.
package version

var (
	// Version is the release version of the binary.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns a single-line build identifier.
func String() string {
	return Version + " (" + GitSHA + ", " + BuildTime + ")"
}
