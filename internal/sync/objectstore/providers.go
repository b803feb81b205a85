package objectstore

import (
	"fmt"
	"strings"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAWS   = "aws"
	ProviderMinIO = "minio"
	ProviderR2    = "r2"
)

// Standard AWS S3 regional endpoints.
var awsEndpoints = map[string]string{
	"us-east-1":      "s3.amazonaws.com",
	"us-east-2":      "s3.us-east-2.amazonaws.com",
	"us-west-1":      "s3.us-west-1.amazonaws.com",
	"us-west-2":      "s3.us-west-2.amazonaws.com",
	"eu-west-1":      "s3.eu-west-1.amazonaws.com",
	"eu-west-2":      "s3.eu-west-2.amazonaws.com",
	"eu-central-1":   "s3.eu-central-1.amazonaws.com",
	"eu-north-1":     "s3.eu-north-1.amazonaws.com",
	"ap-northeast-1": "s3.ap-northeast-1.amazonaws.com",
	"ap-southeast-1": "s3.ap-southeast-1.amazonaws.com",
	"ap-southeast-2": "s3.ap-southeast-2.amazonaws.com",
	"ap-southeast-3": "s3.ap-southeast-3.amazonaws.com",
	"ap-south-1":     "s3.ap-south-1.amazonaws.com",
	"ca-central-1":   "s3.ca-central-1.amazonaws.com",
	"sa-east-1":      "s3.sa-east-1.amazonaws.com",
	"me-south-1":     "s3.me-south-1.amazonaws.com",
	"af-south-1":     "s3.af-south-1.amazonaws.com",
}

// IsSupportedAWSRegion checks if a region is in the endpoint table.
func IsSupportedAWSRegion(region string) bool {
	_, ok := awsEndpoints[region]
	return ok
}

// normalizeEndpoint adds a scheme if missing and trims the trailing slash.
func normalizeEndpoint(endpoint string, useSSL bool) string {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	return strings.TrimSuffix(endpoint, "/")
}

// R2Endpoint returns the account-specific Cloudflare R2 endpoint.
func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// IsValidR2AccountID reports whether accountID looks like a 32-character hex id.
func IsValidR2AccountID(accountID string) bool {
	if len(accountID) != 32 {
		return false
	}
	for _, c := range accountID {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// resolve fills provider defaults into cfg.
// AWS uses virtual-host style, MinIO path style with a fixed region and
// R2 its account endpoint with region "auto".
func resolve(cfg Config) (Config, error) {
	if cfg.Bucket == "" {
		return cfg, fmt.Errorf("bucket is required")
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAWS:
		cfg.Provider = ProviderAWS
		if cfg.Region == "" {
			cfg.Region = "us-east-1"
		}
		if cfg.Endpoint == "" && !IsSupportedAWSRegion(cfg.Region) {
			return cfg, fmt.Errorf("unknown AWS region: %s", cfg.Region)
		}
		if cfg.Endpoint != "" {
			cfg.Endpoint = normalizeEndpoint(cfg.Endpoint, true)
		}
		cfg.ForcePathStyle = false
	case ProviderMinIO:
		cfg.Provider = ProviderMinIO
		if cfg.Endpoint == "" {
			cfg.Endpoint = "localhost:9000"
		}
		cfg.Endpoint = normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
		if cfg.Region == "" {
			cfg.Region = "us-east-1"
		}
		cfg.ForcePathStyle = true
	case ProviderR2:
		cfg.Provider = ProviderR2
		if !IsValidR2AccountID(cfg.AccountID) {
			return cfg, fmt.Errorf("invalid R2 account id")
		}
		cfg.Endpoint = R2Endpoint(cfg.AccountID)
		cfg.Region = "auto"
		cfg.ForcePathStyle = false
	default:
		return cfg, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
	return cfg, nil
}
