// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package httpsig

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/piprate/json-gold/ld"

	"github.com/toeirei/inbound/internal/inbox"
	"github.com/toeirei/inbound/internal/logging"
)

// identityContext is the context RsaSignature2017 options are normalized under.
const identityContext = "https://w3id.org/identity/v1"

// ContentVerifier verifies RsaSignature2017 Linked Data signatures embedded
// in documents.
type ContentVerifier struct {
	keys   KeyResolver
	loader ld.DocumentLoader
}

var _ inbox.ContentVerifier = (*ContentVerifier)(nil)

// NewContentVerifier returns a verifier resolving creators through keys. A nil
// loader fetches JSON-LD contexts over HTTP and caches them.
func NewContentVerifier(keys KeyResolver, loader ld.DocumentLoader) *ContentVerifier {
	if loader == nil {
		loader = NewContextLoader(&http.Client{Timeout: 10 * time.Second})
	}
	return &ContentVerifier{keys: keys, loader: loader}
}

// contextLoader serializes access to a caching loader.
type contextLoader struct {
	mu   sync.Mutex
	next *ld.CachingDocumentLoader
}

// NewContextLoader returns a caching context loader over client.
func NewContextLoader(client *http.Client) ld.DocumentLoader {
	return &contextLoader{next: ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(client))}
}

func (l *contextLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.LoadDocument(u)
}

// IsContentSigned reports whether raw carries a signature block with a creator.
func (*ContentVerifier) IsContentSigned(raw map[string]any) bool {
	sig, ok := raw["signature"].(map[string]any)
	if !ok {
		return false
	}
	creator, _ := sig["creator"].(string)
	value, _ := sig["signatureValue"].(string)
	return creator != "" && value != ""
}

// ContentSigner returns the actor owning the key that signed raw, or "" when
// the signature does not verify.
func (c *ContentVerifier) ContentSigner(ctx context.Context, raw map[string]any) string {
	if !c.IsContentSigned(raw) {
		return ""
	}
	sig := raw["signature"].(map[string]any)
	creator := sig["creator"].(string)
	signer, err := c.verify(ctx, raw, sig, creator)
	if err != nil {
		logging.L.Info("Embedded signature rejected", "type", sig["type"], "creator", creator, "err", err)
		return ""
	}
	return signer
}

func (c *ContentVerifier) verify(ctx context.Context, raw, sig map[string]any, creator string) (string, error) {
	if typ, _ := sig["type"].(string); typ != "RsaSignature2017" {
		return "", fmt.Errorf("unsupported signature type %q", typ)
	}
	a, err := c.keys.ActorByKeyID(ctx, creator)
	if err != nil {
		return "", err
	}
	if a == nil || a.PublicKeyPEM == "" {
		return "", fmt.Errorf("no key %s", creator)
	}
	if a.Gone {
		return "", ErrSignerGone
	}
	pub, err := ParsePublicKey(a.PublicKeyPEM)
	if err != nil {
		return "", err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return "", errors.New("key is not an RSA key")
	}
	value, err := base64.StdEncoding.DecodeString(sig["signatureValue"].(string))
	if err != nil {
		return "", fmt.Errorf("signature value: %w", err)
	}
	input, err := c.signingInput(raw, sig)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256([]byte(input))
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, h[:], value); err != nil {
		return "", ErrInvalidSignature
	}
	return a.URL, nil
}

// signingInput concatenates the digests of the normalized signature options
// and of the normalized document without its signature.
func (c *ContentVerifier) signingInput(raw, sig map[string]any) (string, error) {
	options := map[string]any{"@context": identityContext}
	for k, v := range sig {
		switch k {
		case "type", "id", "signatureValue":
		default:
			options[k] = v
		}
	}
	doc := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "signature" {
			doc[k] = v
		}
	}
	optionsHash, err := c.normalizedHash(options)
	if err != nil {
		return "", fmt.Errorf("normalize options: %w", err)
	}
	docHash, err := c.normalizedHash(doc)
	if err != nil {
		return "", fmt.Errorf("normalize document: %w", err)
	}
	return optionsHash + docHash, nil
}

// normalizedHash returns the hex SHA-256 of the URDNA2015 N-Quads of doc.
func (c *ContentVerifier) normalizedHash(doc map[string]any) (string, error) {
	opts := ld.NewJsonLdOptions("")
	opts.Algorithm = "URDNA2015"
	opts.Format = "application/n-quads"
	opts.DocumentLoader = c.loader
	out, err := ld.NewJsonLdProcessor().Normalize(doc, opts)
	if err != nil {
		return "", err
	}
	nquads, _ := out.(string)
	sum := sha256.Sum256([]byte(nquads))
	return hex.EncodeToString(sum[:]), nil
}
