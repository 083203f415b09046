package leftright

// Version information for the leftright library.
const (
	// Version is the current version of the library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the library.
type Info struct {
	// Version is the library version string.
	Version string

	// Algorithm is the concurrency control technique in use.
	Algorithm string
}

// GetInfo returns information about the library.
//
// Example:
//
//	info := leftright.GetInfo()
//	fmt.Printf("leftright %s (%s)\n", info.Version, info.Algorithm)
func GetInfo() Info {
	return Info{
		Version:   Version,
		Algorithm: "left-right, two-generation log rotation",
	}
}
