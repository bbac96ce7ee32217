package types

// SourceLocation is a located package directory. Identity is stable for the
// same source across runs and processes, even when Dir is a fresh unpack.
type SourceLocation struct {
	Dir      string
	Identity string
	// Unpacked marks a Dir inside a working directory that is removed on
	// cleanup.
	Unpacked bool
}
