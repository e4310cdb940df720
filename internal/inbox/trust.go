// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package inbox

import (
	"context"

	"github.com/toeirei/inbound/internal/logging"
)

// TrustContext is the trust state of one delivery. Stages receive it by value
// and return the updated copy.
type TrustContext struct {
	Trusted         bool
	Signers         []string
	TransportSigner string
	Push            bool
}

// WithTrusted returns a copy with the verdict replaced.
func (t TrustContext) WithTrusted(v bool) TrustContext {
	t.Trusted = v
	return t
}

// WithSigner returns a copy with url added to the signer set.
func (t TrustContext) WithSigner(url string) TrustContext {
	if url == "" || t.SignedBy(url) {
		return t
	}
	signers := make([]string, len(t.Signers), len(t.Signers)+1)
	copy(signers, t.Signers)
	t.Signers = append(signers, url)
	return t
}

// SignedBy reports whether url is part of the signer set.
func (t TrustContext) SignedBy(url string) bool {
	for _, s := range t.Signers {
		if s == url {
			return true
		}
	}
	return false
}

// evaluateTrust combines the transport signature with an optional content
// signature. A non-nil error rejects the delivery.
func (r *Receiver) evaluateTrust(ctx context.Context, body []byte, raw map[string]any, actor string, t Transport) (TrustContext, error) {
	signer, err := r.transport.VerifyTransport(ctx, body, t)
	if err != nil {
		return TrustContext{}, err
	}
	tc := TrustContext{TransportSigner: signer, Push: true}.WithSigner(signer)

	if r.content == nil || !r.content.IsContentSigned(raw) {
		tc.Trusted = actor == signer
		if !tc.Trusted {
			logging.L.Info("Activity is not signed by its actor", "actor", actor, "signer", signer)
		}
		return tc, nil
	}

	contentSigner := r.content.ContentSigner(ctx, raw)
	switch {
	case contentSigner == "":
		tc.Trusted = actor == signer
		logging.L.Info("Invalid content signature", "actor", actor, "signer", signer, "trusted", tc.Trusted)
	case contentSigner == signer:
		tc.Trusted = true
	default:
		tc = tc.WithSigner(contentSigner).WithTrusted(true)
		logging.L.Info("Content is signed by a different actor", "content_signer", contentSigner, "signer", signer)
	}
	return tc, nil
}
