// Package stage models the per-operation stage metadata shared by all
// storage providers.
package stage

import (
	"strings"
)

// Type tags the storage backend of a stage.
type Type string

// Supported stage backends. Anything else is rejected before network I/O.
const (
	TypeS3    Type = "S3"
	TypeAzure Type = "AZURE"
)

// Credential map keys. Internal stages receive these from the engine
// session; external stages from the caller.
const (
	CredAWSKeyID     = "AWS_KEY_ID"
	CredAWSSecretKey = "AWS_SECRET_KEY"
	CredAWSToken     = "AWS_TOKEN"
	CredAWSRegion    = "AWS_REGION"
	CredAzureSAS     = "AZURE_SAS_TOKEN"
	CredMasterKey    = "MASTER_KEY"
)

// Object describes one remote object available for reading on an internal
// stage, as reported by the stage metadata.
type Object struct {
	Name    string // object name relative to the stage prefix
	QueryID string
	SmkID   string
}

// Info is the ephemeral mapping built per storage operation. It carries
// everything a provider needs for one upload or download and is discarded
// afterwards.
type Info struct {
	// Type selects the provider implementation.
	Type Type

	// Location is "{bucket-or-container}/{path prefix}".
	Location string

	// Account and Endpoint locate the blob service for Azure stages
	// (https://{account}.{endpoint}/).
	Account  string
	Endpoint string

	// MasterKey is the base64 stage master key. Empty means objects on this
	// stage are not client-side encrypted.
	MasterKey string

	// QueryID and SmkID feed the material descriptor on writes.
	QueryID string
	SmkID   string

	// Credentials holds static or ephemeral provider credentials.
	Credentials map[string]string

	// Objects lists the remote objects available for reads on internal
	// stages. External stages enumerate by prefix instead.
	Objects []Object

	// IsWrite and TargetFile record what this Info was resolved for.
	IsWrite    bool
	TargetFile string
}

// Bucket returns the bucket (or container) component of Location.
func (i *Info) Bucket() string {
	if idx := strings.Index(i.Location, "/"); idx >= 0 {
		return i.Location[:idx]
	}
	return i.Location
}

// Prefix returns the normalized path prefix component of Location: empty, or
// ending with exactly one separator.
func (i *Info) Prefix() string {
	idx := strings.Index(i.Location, "/")
	if idx < 0 {
		return ""
	}
	return NormalizePrefix(i.Location[idx+1:])
}

// NormalizePrefix normalizes a path prefix so that it is either empty or
// ends with exactly one "/".
func NormalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}
