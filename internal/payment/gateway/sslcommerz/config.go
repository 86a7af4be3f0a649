package sslcommerz

import (
	"fmt"
)

// =====================================================
// SSLCOMMERZ CONFIGURATION
// =====================================================

const (
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
	liveBaseURL    = "https://securepay.sslcommerz.com"

	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"
	refundPath    = "/validator/api/merchantTransIDvalidationAPI.php"
)

type Config struct {
	StoreID       string // merchant store id
	StorePassword string // store password, doubles as the webhook secret
	Sandbox       bool
}

func (c *Config) Validate() error {
	if c.StoreID == "" {
		return fmt.Errorf("SSLCommerz store_id is required")
	}
	if c.StorePassword == "" {
		return fmt.Errorf("SSLCommerz store_password is required")
	}
	return nil
}

func (c *Config) baseURL() string {
	if c.Sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

// SessionURL is the hosted-checkout session endpoint.
func (c *Config) SessionURL() string {
	return c.baseURL() + sessionPath
}

// ValidatorURL is the transaction validation endpoint.
func (c *Config) ValidatorURL() string {
	return c.baseURL() + validatorPath
}

// RefundURL is the refund initiation endpoint.
func (c *Config) RefundURL() string {
	return c.baseURL() + refundPath
}
