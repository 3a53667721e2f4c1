// Package source obtains the daemon's source tree for the build.
//
// An Origin is selected once per invocation and carries its own fetch
// strategy: a release archive is downloaded, verified against its SHA-256
// digest, and unpacked; a head checkout is a shallow git clone; a local
// origin uses an existing tree as-is.
package source

import (
	"fmt"
	"strings"
)

// Kind identifies where the source comes from.
type Kind string

const (
	KindArchive Kind = "archive"
	KindHead    Kind = "head"
	KindLocal   Kind = "local"
)

// ParseKind converts a configuration value into a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindArchive:
		return KindArchive, nil
	case KindHead:
		return KindHead, nil
	case KindLocal:
		return KindLocal, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", value)
	}
}

// Origin describes one source location.
type Origin struct {
	Kind    Kind
	URL     string
	SHA256  string
	Ref     string
	Path    string
	Version string
}

// Archive returns a release archive origin.
func Archive(url, sha256, version string) Origin {
	return Origin{Kind: KindArchive, URL: url, SHA256: strings.ToLower(sha256), Version: version}
}

// Head returns a version-control checkout origin.
func Head(url, ref string) Origin {
	return Origin{Kind: KindHead, URL: url, Ref: ref, Version: "HEAD"}
}

// Local returns an origin for an existing tree.
func Local(path, version string) Origin {
	return Origin{Kind: KindLocal, Path: path, Version: version}
}

// String describes the origin for logs and receipts.
func (o Origin) String() string {
	switch o.Kind {
	case KindArchive:
		return fmt.Sprintf("archive %s", o.URL)
	case KindHead:
		if o.Ref != "" {
			return fmt.Sprintf("head %s@%s", o.URL, o.Ref)
		}
		return fmt.Sprintf("head %s", o.URL)
	case KindLocal:
		return fmt.Sprintf("local %s", o.Path)
	default:
		return string(o.Kind)
	}
}

// Validate checks the fields the kind's strategy needs.
func (o Origin) Validate() error {
	switch o.Kind {
	case KindArchive:
		if strings.TrimSpace(o.URL) == "" {
			return fmt.Errorf("archive origin requires a url")
		}
		if len(o.SHA256) != 64 {
			return fmt.Errorf("archive origin requires a 64 character sha256, got %q", o.SHA256)
		}
	case KindHead:
		if strings.TrimSpace(o.URL) == "" {
			return fmt.Errorf("head origin requires a url")
		}
	case KindLocal:
		if strings.TrimSpace(o.Path) == "" {
			return fmt.Errorf("local origin requires a path")
		}
	default:
		return fmt.Errorf("unknown source kind %q", o.Kind)
	}
	return nil
}
