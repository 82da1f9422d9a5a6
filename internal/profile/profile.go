// Package profile manages connection profiles: the credentials and
// provider choice for one storage account. Profiles are immutable once
// created — they can only be added, activated, or deleted — and at
// most one is active at a time.
//
// Persistence is a JSON-serialized profile list plus the active
// profile id, written to a key-value blob store under fixed keys.
package profile

import (
	"time"

	"github.com/koustreak/s3hub/internal/filestore"
)

// Profile identifies one storage account.
type Profile struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	AccessKey string             `json:"accessKey"`
	SecretKey string             `json:"secretKey"`
	Service   filestore.Service  `json:"service"`
	Region    string             `json:"region,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Config returns the filestore configuration for this profile.
func (p Profile) Config() *filestore.Config {
	if p.Service == filestore.ServiceStorj {
		return filestore.StorjConfig(p.AccessKey, p.SecretKey)
	}
	return filestore.AWSConfig(p.AccessKey, p.SecretKey, p.Region)
}

// Redacted returns a copy safe to serialize to clients: the secret key
// is blanked.
func (p Profile) Redacted() Profile {
	p.SecretKey = ""
	return p
}

// Params are the caller-supplied fields of a new profile.
type Params struct {
	Name      string
	AccessKey string
	SecretKey string
	Service   filestore.Service
	Region    string
}
