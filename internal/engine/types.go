package engine

import "github.com/vk/multirelease/internal/version"

// Commit is one VCS commit considered by the analyze stage.
type Commit struct {
	SHA     string
	Subject string
	Body    string
}

// Release describes one published (or about-to-be-published) release.
type Release struct {
	Version string
	GitTag  string
	Type    version.Type
	Channel string
	Notes   string
}

// Outcome is the structured result of a full single-unit pipeline run. A nil
// Outcome with a nil error means the pipeline decided no release was
// warranted.
type Outcome struct {
	LastRelease *Release
	NextRelease *Release
	Commits     []Commit
	Releases    []Release
}
