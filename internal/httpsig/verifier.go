// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package httpsig verifies the HTTP signatures of inbox deliveries
// (draft-cavage-http-signatures as deployed in the fediverse) on top of
// github.com/go-fed/httpsig.
package httpsig

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gofed "github.com/go-fed/httpsig"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/logging"
	"github.com/toeirei/inbound/internal/model"
)

var (
	// ErrNoSignature is returned when the request carries no signature.
	ErrNoSignature = errors.New("httpsig: no signature")
	// ErrInvalidSignature is returned for signatures that do not verify.
	ErrInvalidSignature = errors.New("httpsig: invalid signature")
	// ErrSignerGone is returned when the signing actor was deleted at its origin.
	ErrSignerGone = errors.New("httpsig: signer gone")
)

// DefaultMaxSkew bounds the distance between the Date header and now.
const DefaultMaxSkew = 12 * time.Hour

// KeyResolver maps a key id onto its owner, implemented by identity.Directory.
type KeyResolver interface {
	ActorByKeyID(ctx context.Context, keyID string) (*model.Actor, error)
}

// Verifier implements inbox.TransportVerifier.
type Verifier struct {
	keys    KeyResolver
	maxSkew time.Duration
	now     func() time.Time
}

var _ inbox.TransportVerifier = (*Verifier)(nil)

// NewVerifier returns a verifier resolving keys through keys.
func NewVerifier(keys KeyResolver) *Verifier {
	return &Verifier{keys: keys, maxSkew: DefaultMaxSkew, now: time.Now}
}

// request rebuilds the signed request from the captured transport.
func request(t inbox.Transport) (*http.Request, error) {
	u, err := url.ParseRequestURI(t.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", t.Path, err)
	}
	r := &http.Request{Method: t.Method, URL: u, Host: t.Host, Header: t.Header.Clone()}
	if r.Header == nil {
		r.Header = http.Header{}
	}
	if r.Header.Get("Host") == "" && t.Host != "" {
		r.Header.Set("Host", t.Host)
	}
	return r, nil
}

func hasSignature(h http.Header) bool {
	return h.Get("Signature") != "" || strings.HasPrefix(h.Get("Authorization"), "Signature ")
}

// VerifyTransport checks the signature of a delivery and returns the URL of
// the signing actor.
func (v *Verifier) VerifyTransport(ctx context.Context, body []byte, t inbox.Transport) (string, error) {
	if !hasSignature(t.Header) {
		return "", ErrNoSignature
	}
	r, err := request(t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sv, err := gofed.NewVerifier(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := v.checkDate(r.Header); err != nil {
		return "", err
	}
	if err := checkDigest(r.Header, body); err != nil {
		return "", err
	}

	keyID := sv.KeyId()
	actor, err := v.keys.ActorByKeyID(ctx, keyID)
	if err != nil {
		return "", fmt.Errorf("%w: key %s: %v", ErrInvalidSignature, keyID, err)
	}
	if actor == nil {
		return "", fmt.Errorf("%w: unknown key %s", ErrInvalidSignature, keyID)
	}
	if actor.Gone {
		return "", ErrSignerGone
	}
	pub, err := ParsePublicKey(actor.PublicKeyPEM)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	for _, algo := range algorithmsFor(pub) {
		if err := sv.Verify(pub, algo); err == nil {
			return actor.URL, nil
		}
	}
	logging.L.Debug("Signature does not verify", "key", keyID, "actor", actor.URL)
	return "", ErrInvalidSignature
}

// KeyOwner returns the actor that owns the signing key without verifying.
func (v *Verifier) KeyOwner(ctx context.Context, t inbox.Transport) string {
	if !hasSignature(t.Header) {
		return ""
	}
	r, err := request(t)
	if err != nil {
		return ""
	}
	sv, err := gofed.NewVerifier(r)
	if err != nil {
		return ""
	}
	if a, err := v.keys.ActorByKeyID(ctx, sv.KeyId()); err == nil && a != nil {
		return a.URL
	}
	owner, _, _ := strings.Cut(sv.KeyId(), "#")
	return owner
}

func (v *Verifier) checkDate(h http.Header) error {
	raw := h.Get("Date")
	if raw == "" {
		return nil
	}
	d, err := http.ParseTime(raw)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidSignature, raw)
	}
	if skew := v.now().Sub(d); skew > v.maxSkew || -skew > v.maxSkew {
		return fmt.Errorf("%w: date %s out of range", ErrInvalidSignature, raw)
	}
	return nil
}

// checkDigest validates the body digest. Bodies without a Digest header are
// rejected.
func checkDigest(h http.Header, body []byte) error {
	raw := h.Get("Digest")
	if raw == "" {
		if len(body) == 0 {
			return nil
		}
		return fmt.Errorf("%w: missing digest", ErrInvalidSignature)
	}
	for _, part := range strings.Split(raw, ",") {
		algo, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		var sum []byte
		switch strings.ToUpper(algo) {
		case "SHA-256":
			s := sha256.Sum256(body)
			sum = s[:]
		case "SHA-512":
			s := sha512.Sum512(body)
			sum = s[:]
		default:
			continue
		}
		if base64.StdEncoding.EncodeToString(sum) == value {
			return nil
		}
		return fmt.Errorf("%w: digest mismatch", ErrInvalidSignature)
	}
	return fmt.Errorf("%w: unsupported digest %q", ErrInvalidSignature, raw)
}

// Digest returns the SHA-256 Digest header value for body.
func Digest(body []byte) string {
	s := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(s[:])
}

func algorithmsFor(pub crypto.PublicKey) []gofed.Algorithm {
	switch pub.(type) {
	case *rsa.PublicKey:
		return []gofed.Algorithm{gofed.RSA_SHA256, gofed.RSA_SHA512}
	case ed25519.PublicKey:
		return []gofed.Algorithm{gofed.ED25519}
	}
	return nil
}

// ParsePublicKey decodes a PKIX or PKCS#1 PEM public key.
func ParsePublicKey(pemData string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}
	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		return pub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse public key: %w", err)
	}
	return pub, nil
}
