// File: internal/connector/webhook.go
package connector

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"net/http"
	"net/url"
)

// WebhookEnvelope is the inbound transport envelope. Some connectors put
// the whole payload in the body, others encode every field as query
// parameters; adapters decode whichever carries their fields.
type WebhookEnvelope struct {
	Headers http.Header
	Body    []byte
	Query   url.Values
}

// WebhookEventKind classifies an incoming event.
type WebhookEventKind int

const (
	WebhookEventSuccess WebhookEventKind = iota
	WebhookEventFailure
	WebhookEventNotSupported
)

// ObjectReference is the normalized id the event refers to: either our
// payment id or the connector's transaction id, whichever the connector
// echoes back.
type ObjectReference struct {
	PaymentID              string
	ConnectorTransactionID string
}

// SignatureAlgorithm verifies that signature matches message.
type SignatureAlgorithm interface {
	Verify(message, signature []byte) bool
}

// Sha256Signature is a plain digest check: the remote party signs by
// hashing the secret-prefixed field concatenation.
type Sha256Signature struct{}

func (Sha256Signature) Verify(message, signature []byte) bool {
	sum := sha256.Sum256(message)
	return hmac.Equal(sum[:], signature)
}

// HmacSha512Signature verifies an HMAC-SHA512 over the message.
type HmacSha512Signature struct {
	Secret []byte
}

func (a HmacSha512Signature) Verify(message, signature []byte) bool {
	mac := hmac.New(sha512.New, a.Secret)
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), signature)
}

// WebhookHandler is the webhook sub-contract of an adapter. The signed
// message reconstruction must reproduce the exact byte sequence the remote
// party signed, including the shared secret prefix and the connector's
// field concatenation order.
type WebhookHandler interface {
	VerificationAlgorithm(env *WebhookEnvelope) (SignatureAlgorithm, error)
	Signature(env *WebhookEnvelope, secret string) ([]byte, error)
	SignedMessage(env *WebhookEnvelope, secret string) ([]byte, error)
	ObjectReference(env *WebhookEnvelope) (ObjectReference, error)
	EventKind(env *WebhookEnvelope) (WebhookEventKind, error)
	// ResourceObject produces the normalized resource for persistence.
	ResourceObject(env *WebhookEnvelope) (*TransactionResponse, error)
}

// VerifyWebhookSource runs the full verification: extract the signature,
// reconstruct the signed bytes, and check them under the declared
// algorithm. Any mismatch is a hard rejection.
func VerifyWebhookSource(h WebhookHandler, env *WebhookEnvelope, secret string) error {
	alg, err := h.VerificationAlgorithm(env)
	if err != nil {
		return err
	}
	sig, err := h.Signature(env, secret)
	if err != nil {
		return err
	}
	msg, err := h.SignedMessage(env, secret)
	if err != nil {
		return err
	}
	if !alg.Verify(msg, sig) {
		return ErrWebhookSourceVerification
	}
	return nil
}
