package legacyxml

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"strings"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
	"github.com/trusttri/federation/protocol"
)

// Magic envelope constants. Fixed by the legacy wire contract.
const (
	envelopeElement  = "magic_envelope"
	envelopeAlg      = "RSA-SHA256"
	envelopeEncoding = "base64url"
	payloadType      = "application/xml"
)

// Signature is the envelope signature element. The key_id attribute carries
// the base64url-encoded sender identifier.
type Signature struct {
	KeyID string `xml:"key_id,attr"`
	Value string `xml:",chardata"`
}

// Envelope is a sealed legacy payload: the base64url-encoded document plus
// an RSA-SHA256 signature over the encoded payload and envelope metadata.
type Envelope struct {
	XMLName  xml.Name  `xml:"magic_envelope"`
	Data     string    `xml:"data"`
	DataType string    `xml:"data_type"`
	Encoding string    `xml:"encoding"`
	Alg      string    `xml:"alg"`
	Sig      Signature `xml:"sig"`
}

// Seal encodes a payload and signs it with the sender's key.
func Seal(payload []byte, sender entity.UserType) (*Envelope, error) {
	if sender.PrivateKey == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingRequiredField, "legacyxml", "Seal",
			"sender has no private key")
	}

	data := base64.RawURLEncoding.EncodeToString(payload)
	digest := sha256.Sum256([]byte(signingBase(data)))

	raw, err := rsa.SignPKCS1v15(rand.Reader, sender.PrivateKey, crypto.SHA256, digest[:])
	if err != nil {
		return nil, errors.WrapFatal(err, "legacyxml", "Seal", "signing payload")
	}

	return &Envelope{
		Data:     data,
		DataType: payloadType,
		Encoding: envelopeEncoding,
		Alg:      envelopeAlg,
		Sig: Signature{
			KeyID: base64.RawURLEncoding.EncodeToString([]byte(sender.ID)),
			Value: base64.RawURLEncoding.EncodeToString(raw),
		},
	}, nil
}

// Open verifies an envelope against the sealed sender's public key and
// returns the decoded payload and the sender identifier. Verification
// failures are fatal; malformed envelope metadata is invalid.
func Open(ctx context.Context, env *Envelope, keys protocol.KeySource) ([]byte, string, error) {
	if env.Alg != envelopeAlg || env.Encoding != envelopeEncoding {
		return nil, "", errors.WrapInvalid(errors.ErrMalformedDocument, "legacyxml", "Open",
			"unsupported envelope algorithm or encoding")
	}

	payload, err := base64.RawURLEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, "", errors.WrapInvalid(errors.ErrMalformedDocument, "legacyxml", "Open",
			"payload is not base64url")
	}

	authorRaw, err := base64.RawURLEncoding.DecodeString(env.Sig.KeyID)
	if err != nil || len(authorRaw) == 0 {
		return nil, "", errors.WrapInvalid(errors.ErrMalformedDocument, "legacyxml", "Open",
			"envelope has no decodable sender")
	}
	author := string(authorRaw)

	sig, err := base64.RawURLEncoding.DecodeString(env.Sig.Value)
	if err != nil {
		return nil, "", errors.WrapFatal(errors.ErrSignatureInvalid, "legacyxml", "Open",
			"signature value is not base64url")
	}

	pemText, err := keys.PublicKeyFor(ctx, author)
	if err != nil {
		return nil, "", errors.Wrap(err, "legacyxml", "Open", "fetching public key for "+author)
	}
	pub, err := decodePublicKeyPEM(pemText)
	if err != nil {
		return nil, "", errors.WrapFatal(errors.ErrSignatureInvalid, "legacyxml", "Open", err.Error())
	}

	digest := sha256.Sum256([]byte(signingBase(env.Data)))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return nil, "", errors.WrapFatal(errors.ErrSignatureInvalid, "legacyxml", "Open",
			"digest does not match signature")
	}

	return payload, author, nil
}

// signingBase builds the dot-joined signing string over the encoded payload
// and envelope metadata, each segment base64url-encoded.
func signingBase(data string) string {
	segments := []string{
		data,
		base64.RawURLEncoding.EncodeToString([]byte(payloadType)),
		base64.RawURLEncoding.EncodeToString([]byte(envelopeEncoding)),
		base64.RawURLEncoding.EncodeToString([]byte(envelopeAlg)),
	}
	return strings.Join(segments, ".")
}

// decodePublicKeyPEM parses a PEM-encoded RSA public key, accepting both
// PKIX and PKCS#1 encodings.
func decodePublicKeyPEM(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}

	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if rsaPub, ok := pub.(*rsa.PublicKey); ok {
			return rsaPub, nil
		}
		return nil, errors.New("public key is not RSA")
	}

	return x509.ParsePKCS1PublicKey(block.Bytes)
}
