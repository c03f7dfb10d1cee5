package encryption

import (
	"encoding/json"
	"fmt"
	"strings"
)

// S3-style user metadata keys. These names are a wire contract shared with
// objects written by other clients; do not change them.
const (
	S3MetaMatdesc = "x-amz-matdesc"
	S3MetaKey     = "x-amz-key"
	S3MetaIV      = "x-amz-iv"
)

// Blob-style metadata keys.
const (
	BlobMetaMatdesc        = "matdesc"
	BlobMetaEncryptionData = "encryptiondata"
)

// encryptionLibrary identifies this implementation in blob key-wrapping
// metadata.
const encryptionLibrary = "StageLink 1.0"

// MaterialDescriptor identifies which master key version and key size
// produced a wrapped data key.
type MaterialDescriptor struct {
	SmkID   int64  `json:"smkId"`
	QueryID string `json:"queryId"`
	KeySize int    `json:"keySize"`
}

// EncryptionData is the blob-style encryption metadata document. Field names
// and nesting are a wire contract; objects written previously must keep
// parsing.
type EncryptionData struct {
	EncryptionMode      string              `json:"EncryptionMode"`
	WrappedContentKey   WrappedContentKey   `json:"WrappedContentKey"`
	EncryptionAgent     EncryptionAgent     `json:"EncryptionAgent"`
	ContentEncryptionIV string              `json:"ContentEncryptionIV"`
	KeyWrappingMetadata KeyWrappingMetadata `json:"KeyWrappingMetadata"`
}

// WrappedContentKey carries the wrapped per-object data key.
type WrappedContentKey struct {
	KeyID        string `json:"KeyId"`
	EncryptedKey string `json:"EncryptedKey"`
	Algorithm    string `json:"Algorithm"`
}

// EncryptionAgent describes the protocol and cipher used for the object body.
type EncryptionAgent struct {
	Protocol            string `json:"Protocol"`
	EncryptionAlgorithm string `json:"EncryptionAlgorithm"`
}

// KeyWrappingMetadata names the implementation that wrapped the key.
type KeyWrappingMetadata struct {
	EncryptionLibrary string `json:"EncryptionLibrary"`
}

// MaterialDescriptorJSON serializes the envelope's material descriptor.
func (e *Envelope) MaterialDescriptorJSON() (string, error) {
	matdesc, err := json.Marshal(MaterialDescriptor{
		SmkID:   e.smkID,
		QueryID: e.queryID,
		KeySize: e.keyBits,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize material descriptor: %w", err)
	}
	return string(matdesc), nil
}

// S3Metadata serializes the envelope as S3-style user metadata: three opaque
// string fields attached to the object on write.
func (e *Envelope) S3Metadata() (map[string]string, error) {
	matdesc, err := e.MaterialDescriptorJSON()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		S3MetaMatdesc: matdesc,
		S3MetaKey:     e.WrappedKeyBase64(),
		S3MetaIV:      e.IVBase64(),
	}, nil
}

// BlobMetadata serializes the envelope as blob-style metadata: a material
// descriptor field plus the encryptiondata JSON document.
func (e *Envelope) BlobMetadata() (map[string]string, error) {
	matdesc, err := e.MaterialDescriptorJSON()
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(EncryptionData{
		EncryptionMode: "FullBlob",
		WrappedContentKey: WrappedContentKey{
			KeyID:        "symmKey1",
			EncryptedKey: e.WrappedKeyBase64(),
			Algorithm:    "AES_CBC_256",
		},
		EncryptionAgent: EncryptionAgent{
			Protocol:            "1.0",
			EncryptionAlgorithm: "AES_CBC_256",
		},
		ContentEncryptionIV: e.IVBase64(),
		KeyWrappingMetadata: KeyWrappingMetadata{
			EncryptionLibrary: encryptionLibrary,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize encryption data: %w", err)
	}

	return map[string]string{
		BlobMetaMatdesc:        matdesc,
		BlobMetaEncryptionData: string(doc),
	}, nil
}

// ParseS3Metadata extracts the wrapped data key and IV from S3-style user
// metadata. Keys are matched case-insensitively because providers normalize
// metadata casing on the way back.
func ParseS3Metadata(metadata map[string]string) (wrappedKeyB64, ivB64 string, err error) {
	wrappedKeyB64 = lookupFold(metadata, S3MetaKey)
	ivB64 = lookupFold(metadata, S3MetaIV)
	if wrappedKeyB64 == "" || ivB64 == "" {
		return "", "", ErrIncompleteMetadata
	}
	return wrappedKeyB64, ivB64, nil
}

// ParseBlobMetadata extracts the wrapped data key and IV from the nested
// encryptiondata JSON document of blob-style metadata.
func ParseBlobMetadata(metadata map[string]string) (wrappedKeyB64, ivB64 string, err error) {
	doc := lookupFold(metadata, BlobMetaEncryptionData)
	if doc == "" {
		return "", "", ErrIncompleteMetadata
	}

	var data EncryptionData
	if jerr := json.Unmarshal([]byte(doc), &data); jerr != nil {
		return "", "", fmt.Errorf("failed to parse encryption data: %w", jerr)
	}

	if data.WrappedContentKey.EncryptedKey == "" || data.ContentEncryptionIV == "" {
		return "", "", ErrIncompleteMetadata
	}
	return data.WrappedContentKey.EncryptedKey, data.ContentEncryptionIV, nil
}

func lookupFold(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok {
		return v
	}
	for k, v := range metadata {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
