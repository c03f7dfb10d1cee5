// Package providers resolves stage locations and constructs the matching
// storage provider variant.
package providers

import (
	"regexp"
	"strings"
)

// LocationKind is the closed set of outcomes of parsing a root storage URL.
type LocationKind int

const (
	// KindInternal means the URL matched neither external grammar;
	// coordinates and credentials come from the engine session instead.
	KindInternal LocationKind = iota
	// KindExternalS3 is an S3-style external stage.
	KindExternalS3
	// KindExternalBlob is a blob-style external stage.
	KindExternalBlob
	// KindInvalid means the URL used an external scheme but did not satisfy
	// its grammar.
	KindInvalid
)

// Location is the parsed form of a root storage URL.
type Location struct {
	Kind LocationKind

	// S3-style coordinates
	Bucket string

	// Blob-style coordinates
	Container string
	Account   string
	Endpoint  string

	// Path prefix (both styles), without leading slash
	Path string
}

// External stage URL grammars:
//
//	s3[an]://<bucket>/<path>
//	wasb[s]://<container>@<account>.<endpoint>/<path>
var (
	s3Pattern   = regexp.MustCompile(`^s3[an]?://([^/]+)(?:/(.*))?$`)
	blobPattern = regexp.MustCompile(`^wasbs?://([^@/]+)@([^./]+)\.([^/]+)(?:/(.*))?$`)
)

// ParseLocation classifies a root storage URL. URLs that use neither
// external scheme denote internal stages.
func ParseLocation(rawURL string) Location {
	switch {
	case strings.HasPrefix(rawURL, "s3://"), strings.HasPrefix(rawURL, "s3a://"), strings.HasPrefix(rawURL, "s3n://"):
		if m := s3Pattern.FindStringSubmatch(rawURL); m != nil {
			return Location{
				Kind:   KindExternalS3,
				Bucket: m[1],
				Path:   m[2],
			}
		}
		return Location{Kind: KindInvalid}

	case strings.HasPrefix(rawURL, "wasb://"), strings.HasPrefix(rawURL, "wasbs://"):
		if m := blobPattern.FindStringSubmatch(rawURL); m != nil {
			return Location{
				Kind:      KindExternalBlob,
				Container: m[1],
				Account:   m[2],
				Endpoint:  m[3],
				Path:      m[4],
			}
		}
		return Location{Kind: KindInvalid}
	}

	return Location{Kind: KindInternal}
}
