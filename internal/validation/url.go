package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// EndpointValidator checks the API and mirror URLs taken from configuration
// or flags before any request is built from them.
type EndpointValidator struct {
	// AllowLocalhost permits loopback hosts, for local mirrors and tests
	AllowLocalhost bool
	// RequireQueryFree rejects URLs that already carry a query string
	RequireQueryFree bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

func NewEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		AllowLocalhost: true,
		MaxLength:      2048,
	}
}

// NewStrictEndpointValidator rejects loopback hosts and query strings.
func NewStrictEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		RequireQueryFree: true,
		MaxLength:        2048,
	}
}

// ValidateAndNormalize validates an endpoint URL and returns the normalized version
func (v *EndpointValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	// Default to HTTPS
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}

	if err := v.validateHost(parsedURL.Hostname()); err != nil {
		return "", err
	}

	if strings.Contains(parsedURL.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in URL path")
	}
	if v.RequireQueryFree && parsedURL.RawQuery != "" {
		return "", fmt.Errorf("URL must not contain a query string")
	}
	parsedURL.Fragment = ""

	return parsedURL.String(), nil
}

// ValidateMirror validates a download mirror. Mirrors are joined with file
// paths, so the result always ends in a slash.
func (v *EndpointValidator) ValidateMirror(input string) (string, error) {
	u, err := v.ValidateAndNormalize(input)
	if err != nil {
		return "", err
	}
	if strings.Contains(u, "?") {
		return "", fmt.Errorf("mirror URL must not contain a query string")
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u, nil
}

func (v *EndpointValidator) validateHost(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}
	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return fmt.Errorf("unroutable host %s", hostname)
	}
	return nil
}

// isLocalhost checks if a hostname refers to localhost
func isLocalhost(hostname string) bool {
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}
