// Package buildinfo carries version metadata stamped at link time:
//
//	go build -ldflags "-X 'github.com/m3rciful/tripbot/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/tripbot/core/buildinfo.Commit=abcdef0' \
//	  -X 'github.com/m3rciful/tripbot/core/buildinfo.Date=2025-08-30T12:00:00Z'" ./cmd/tripbot
package buildinfo

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision.
	Commit = "local"
	// Date is the build time in RFC3339.
	Date = ""
)

// String renders the version line printed by `tripbot version`.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
