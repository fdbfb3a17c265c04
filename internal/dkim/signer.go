// Package dkim produces DKIM-Signature header values for outbound mail.
//
// The signer covers a fixed header subset (from, to, subject, date) with
// relaxed canonicalization and an RSA-SHA256 signature. Receiving servers
// verify the header with the standard DKIM algorithm, so the exact
// canonicalization rules here are load-bearing: any deviation between signing
// and what a verifier reconstructs breaks delivery.
package dkim

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"regexp"
	"strings"

	apperrors "github.com/veltamail/veltamail-backend/internal/errors"
)

// signedHeaderNames is the declared order of headers covered by the
// signature. The h= tag and the hash input must agree on this order.
var signedHeaderNames = []string{"from", "to", "subject", "date"}

var wspRun = regexp.MustCompile(`[ \t]+`)

// Headers is the subset of message headers covered by the signature.
type Headers struct {
	From    string
	To      string
	Subject string
	Date    string
}

// Config holds the signing identity.
type Config struct {
	// Domain is the d= tag: the domain taking responsibility for the message.
	Domain string
	// Selector is the s= tag: the DNS selector under _domainkey.
	Selector string
	// KeyFile is the path to the PEM-encoded RSA private key.
	KeyFile string
}

// Signer signs outbound messages. It is safe for concurrent use: the key is
// loaded once at construction and never mutated.
type Signer struct {
	cfg Config
	key *rsa.PrivateKey
}

// NewSigner loads the private key and returns a ready signer. A missing or
// unparsable key is fatal to the caller: unsigned outbound mail is rejected
// or spam-flagged by receiving servers, so the process must not start
// without signing capability.
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.Domain == "" || cfg.Selector == "" {
		return nil, fmt.Errorf("%w: domain and selector are required", apperrors.ErrKeySetup)
	}

	pemData, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrKeySetup, cfg.KeyFile, err)
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrKeySetup, cfg.KeyFile, err)
	}

	return &Signer{cfg: cfg, key: key}, nil
}

// parsePrivateKey accepts PKCS#1 and PKCS#8 encoded RSA keys.
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unsupported key encoding: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is %T, want RSA", parsed)
	}
	return key, nil
}

// Sign returns the DKIM-Signature header value for the given headers and
// body. Deterministic: identical inputs and key yield byte-identical output.
func (s *Signer) Sign(h Headers, body string) (string, error) {
	bodyHash := sha256.Sum256([]byte(CanonicalizeBody(body)))
	bh := base64.StdEncoding.EncodeToString(bodyHash[:])

	// The signed data is the canonicalized header block followed by an
	// empty line.
	headerBlock := canonicalizeHeaders(h)
	digest := sha256.Sum256([]byte(headerBlock + "\r\n\r\n"))

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("dkim: signing headers: %w", err)
	}
	b := base64.StdEncoding.EncodeToString(sig)

	tags := []string{
		"v=1",
		"a=rsa-sha256",
		"c=relaxed/relaxed",
		"d=" + s.cfg.Domain,
		"s=" + s.cfg.Selector,
		"bh=" + bh,
		"h=" + strings.Join(signedHeaderNames, ":"),
		"b=" + b,
	}
	return strings.Join(tags, "; "), nil
}

// Domain returns the signing domain (the d= tag).
func (s *Signer) Domain() string {
	return s.cfg.Domain
}

// Selector returns the DNS selector (the s= tag).
func (s *Signer) Selector() string {
	return s.cfg.Selector
}

// PublicKeyRecord returns the TXT record value that must be published at
// <selector>._domainkey.<domain> for verifiers to accept this signer's mail.
func (s *Signer) PublicKeyRecord() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("dkim: encoding public key: %w", err)
	}
	return "v=DKIM1; k=rsa; p=" + base64.StdEncoding.EncodeToString(der), nil
}

// canonicalizeHeaders applies relaxed header canonicalization to the signed
// subset: lowercase names, internal whitespace folded to single spaces,
// values trimmed, one name:value pair per CRLF-terminated line, in the
// declared h= order.
func canonicalizeHeaders(h Headers) string {
	values := map[string]string{
		"from":    h.From,
		"to":      h.To,
		"subject": h.Subject,
		"date":    h.Date,
	}

	var b strings.Builder
	for i, name := range signedHeaderNames {
		if i > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(canonicalizeHeaderValue(values[name]))
	}
	return b.String()
}

// canonicalizeHeaderValue folds runs of whitespace to a single space and
// trims leading/trailing whitespace.
func canonicalizeHeaderValue(v string) string {
	v = strings.ReplaceAll(v, "\r\n", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	v = wspRun.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}

// CanonicalizeBody normalizes all line endings to CRLF and guarantees the
// body ends with exactly one trailing CRLF. Canonicalizing an already
// canonical body is a no-op.
func CanonicalizeBody(body string) string {
	// Normalize to bare LF first so stray CRs don't survive.
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	// Exactly one trailing line ending.
	body = strings.TrimRight(body, "\n")
	body += "\n"

	return strings.ReplaceAll(body, "\n", "\r\n")
}
