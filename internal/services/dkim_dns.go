// Package services holds supporting domain services that are not part of the
// request/delivery hot path.
package services

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// MailDNSResult contains the results of mail DNS verification for the
// sending domain.
type MailDNSResult struct {
	MXVerified   bool     `json:"mx_verified"`
	DKIMVerified bool     `json:"dkim_verified"`
	AllVerified  bool     `json:"all_verified"`
	Errors       []string `json:"errors,omitempty"`
}

// MailDNSConfig holds configuration for the mail DNS verifier service
type MailDNSConfig struct {
	SMTPHostname  string
	MaxRetries    int
	RetryDelay    time.Duration
	LookupTimeout time.Duration
}

// DefaultMailDNSConfig returns default configuration for the verifier
func DefaultMailDNSConfig() MailDNSConfig {
	return MailDNSConfig{
		SMTPHostname:  "mail.veltamail.local",
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
		LookupTimeout: 10 * time.Second,
	}
}

// DKIMKeyProvider exposes the published form of the signing key. The signer
// implements this.
type DKIMKeyProvider interface {
	Domain() string
	Selector() string
	PublicKeyRecord() (string, error)
}

// MailDNSVerifier checks that the DNS records mail delivery depends on are
// in place: the MX record for inbound routing and the DKIM TXT record that
// lets receivers verify our signatures.
type MailDNSVerifier interface {
	VerifyMailDNS(ctx context.Context, keys DKIMKeyProvider) (*MailDNSResult, error)
	VerifyMXRecord(ctx context.Context, domainName, expectedHost string) (bool, error)
	VerifyDKIMRecord(ctx context.Context, keys DKIMKeyProvider) (bool, error)
}

// DNSResolver interface for DNS lookups (allows mocking in tests)
type DNSResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// defaultDNSResolver implements DNSResolver using net package
type defaultDNSResolver struct {
	resolver *net.Resolver
}

func newDefaultDNSResolver(timeout time.Duration) *defaultDNSResolver {
	return &defaultDNSResolver{
		resolver: &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{
					Timeout: timeout,
				}
				return d.DialContext(ctx, network, address)
			},
		},
	}
}

func (r *defaultDNSResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return r.resolver.LookupMX(ctx, name)
}

func (r *defaultDNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return r.resolver.LookupTXT(ctx, name)
}

// mailDNSVerifier implements MailDNSVerifier
type mailDNSVerifier struct {
	config   MailDNSConfig
	resolver DNSResolver
}

// NewMailDNSVerifier creates a new MailDNSVerifier instance
func NewMailDNSVerifier(config MailDNSConfig) MailDNSVerifier {
	return &mailDNSVerifier{
		config:   config,
		resolver: newDefaultDNSResolver(config.LookupTimeout),
	}
}

// NewMailDNSVerifierWithResolver creates a verifier with a custom resolver (for testing)
func NewMailDNSVerifierWithResolver(config MailDNSConfig, resolver DNSResolver) MailDNSVerifier {
	return &mailDNSVerifier{
		config:   config,
		resolver: resolver,
	}
}

// VerifyMailDNS checks the MX and DKIM records with a retry mechanism
func (s *mailDNSVerifier) VerifyMailDNS(ctx context.Context, keys DKIMKeyProvider) (*MailDNSResult, error) {
	if keys == nil {
		return nil, fmt.Errorf("key provider cannot be nil")
	}

	result := &MailDNSResult{
		Errors: make([]string, 0),
	}

	mxVerified, err := s.verifyWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return s.VerifyMXRecord(ctx, keys.Domain(), s.config.SMTPHostname)
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("MX verification failed: %v", err))
	}
	result.MXVerified = mxVerified

	dkimVerified, err := s.verifyWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return s.VerifyDKIMRecord(ctx, keys)
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("DKIM verification failed: %v", err))
	}
	result.DKIMVerified = dkimVerified

	result.AllVerified = result.MXVerified && result.DKIMVerified

	return result, nil
}

// verifyWithRetry executes a verification function with retry mechanism
func (s *mailDNSVerifier) verifyWithRetry(ctx context.Context, verifyFunc func(context.Context) (bool, error)) (bool, error) {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		verified, err := verifyFunc(ctx)
		if err == nil && verified {
			return true, nil
		}

		if err != nil {
			lastErr = err
		}

		// Don't sleep on the last attempt
		if attempt < s.config.MaxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}
	}

	if lastErr != nil {
		return false, lastErr
	}
	return false, nil
}

// VerifyMXRecord checks if MX record points to the expected SMTP hostname
func (s *mailDNSVerifier) VerifyMXRecord(ctx context.Context, domainName, expectedHost string) (bool, error) {
	if domainName == "" {
		return false, fmt.Errorf("domain name cannot be empty")
	}
	if expectedHost == "" {
		return false, fmt.Errorf("expected host cannot be empty")
	}

	// Normalize expected host (remove trailing dot if present)
	expectedHost = strings.TrimSuffix(strings.ToLower(expectedHost), ".")

	mxRecords, err := s.resolver.LookupMX(ctx, domainName)
	if err != nil {
		return false, fmt.Errorf("MX lookup failed for %s: %w", domainName, err)
	}

	if len(mxRecords) == 0 {
		return false, fmt.Errorf("no MX records found for %s", domainName)
	}

	for _, mx := range mxRecords {
		mxHost := strings.TrimSuffix(strings.ToLower(mx.Host), ".")
		if mxHost == expectedHost {
			return true, nil
		}
	}

	return false, fmt.Errorf("MX record mismatch: expected %s, found %s", expectedHost, mxRecords[0].Host)
}

// VerifyDKIMRecord checks that the published TXT record at
// <selector>._domainkey.<domain> carries the signer's public key.
func (s *mailDNSVerifier) VerifyDKIMRecord(ctx context.Context, keys DKIMKeyProvider) (bool, error) {
	expected, err := keys.PublicKeyRecord()
	if err != nil {
		return false, fmt.Errorf("failed to build expected DKIM record: %w", err)
	}

	txtDomain := fmt.Sprintf("%s._domainkey.%s", keys.Selector(), keys.Domain())

	txtRecords, err := s.resolver.LookupTXT(ctx, txtDomain)
	if err != nil {
		return false, fmt.Errorf("TXT lookup failed for %s: %w", txtDomain, err)
	}

	if len(txtRecords) == 0 {
		return false, fmt.Errorf("no TXT records found for %s", txtDomain)
	}

	for _, txt := range txtRecords {
		// Long records may be split into multiple character-strings that
		// resolvers rejoin with or without whitespace.
		normalized := strings.ReplaceAll(strings.TrimSpace(txt), " ", "")
		if normalized == strings.ReplaceAll(expected, " ", "") {
			return true, nil
		}
	}

	return false, fmt.Errorf("DKIM record mismatch at %s", txtDomain)
}
