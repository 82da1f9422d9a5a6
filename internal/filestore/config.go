package filestore

import "fmt"

// Service identifies the S3-compatible storage provider.
type Service string

const (
	ServiceAWS   Service = "aws"
	ServiceStorj Service = "storj"
)

// DefaultRegion is used when a profile does not name one.
const DefaultRegion = "us-east-1"

// storjGateway is Storj's S3-compatible gateway host.
const storjGateway = "gateway.storjshare.io"

// Config holds all settings needed to connect to a storage backend.
type Config struct {
	// Service is the storage provider (ServiceAWS or ServiceStorj).
	Service Service

	// AccessKey is the access key ID.
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// Region is the bucket region. Ignored by Storj.
	Region string

	// Endpoint overrides the provider endpoint, host:port form.
	// Mainly for tests and self-hosted gateways; leave empty to
	// resolve from Service and Region.
	Endpoint string

	// UseSSL controls whether TLS is used. Endpoint overrides that
	// point at local test servers typically set this false.
	UseSSL bool
}

// AWSConfig returns a Config for AWS S3 in the given region.
func AWSConfig(accessKey, secretKey, region string) *Config {
	if region == "" {
		region = DefaultRegion
	}
	return &Config{
		Service:   ServiceAWS,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    region,
		UseSSL:    true,
	}
}

// StorjConfig returns a Config for Storj's S3 gateway.
func StorjConfig(accessKey, secretKey string) *Config {
	return &Config{
		Service:   ServiceStorj,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    DefaultRegion,
		UseSSL:    true,
	}
}

// Host returns the endpoint host to dial: the explicit Endpoint when
// set, otherwise the provider's gateway for the configured region.
func (c *Config) Host() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.Service == ServiceStorj {
		return storjGateway
	}
	region := c.Region
	if region == "" {
		region = DefaultRegion
	}
	return fmt.Sprintf("s3.%s.amazonaws.com", region)
}

// PathStyle reports whether bucket names go in the URL path rather than
// the host. Storj's gateway requires path-style addressing, as do local
// test endpoints.
func (c *Config) PathStyle() bool {
	return c.Service == ServiceStorj || c.Endpoint != ""
}
