package activitypub

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"time"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
)

// signatureType tags the linked-data signature scheme on the wire.
const signatureType = "RsaSignature2017"

// Sign attaches a linked-data signature to a document in place. The digest
// covers the document without its signature member plus the signature
// options, each re-encoded as JSON with sorted keys, so signer and verifier
// agree on bytes without a full canonicalization pass.
func Sign(doc map[string]any, signer entity.UserType) error {
	if signer.PrivateKey == nil {
		return errors.WrapInvalid(errors.ErrMissingRequiredField, "activitypub", "Sign",
			"signer has no private key")
	}

	creator := signer.ID + "#main-key"
	created := time.Now().UTC().Format(time.RFC3339)

	digest, err := signingDigest(doc, creator, created)
	if err != nil {
		return errors.WrapInvalid(err, "activitypub", "Sign", "computing signing digest")
	}

	raw, err := rsa.SignPKCS1v15(rand.Reader, signer.PrivateKey, crypto.SHA256, digest)
	if err != nil {
		return errors.WrapFatal(err, "activitypub", "Sign", "signing digest")
	}

	doc["signature"] = map[string]any{
		"type":           signatureType,
		"creator":        creator,
		"created":        created,
		"signatureValue": base64.StdEncoding.EncodeToString(raw),
	}
	return nil
}

// Verify checks a document's linked-data signature against the PEM-encoded
// public key of the claimed actor. Every failure mode maps to the fatal
// ErrSignatureInvalid: a document that claims integrity and cannot prove it
// is dropped, never processed unsigned.
func Verify(doc map[string]any, publicKeyPEM string) error {
	sig, ok := doc["signature"].(map[string]any)
	if !ok {
		return errors.WrapFatal(errors.ErrSignatureInvalid, "activitypub", "Verify",
			"document has no signature member")
	}

	value := stringField(sig, "signatureValue")
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return errors.WrapFatal(errors.ErrSignatureInvalid, "activitypub", "Verify",
			"signature value is not base64")
	}

	pub, err := decodePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return errors.WrapFatal(errors.ErrSignatureInvalid, "activitypub", "Verify", err.Error())
	}

	digest, err := signingDigest(doc, stringField(sig, "creator"), stringField(sig, "created"))
	if err != nil {
		return errors.WrapFatal(errors.ErrSignatureInvalid, "activitypub", "Verify",
			"computing verification digest")
	}

	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest, raw); err != nil {
		return errors.WrapFatal(errors.ErrSignatureInvalid, "activitypub", "Verify",
			"digest does not match signature")
	}
	return nil
}

// signingDigest hashes the signature options and the signature-free
// document, then hashes the concatenation. Relies on encoding/json emitting
// map keys in sorted order on both sides of the wire.
func signingDigest(doc map[string]any, creator, created string) ([]byte, error) {
	payload := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "signature" {
			continue
		}
		payload[k] = v
	}

	docJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	optsJSON, err := json.Marshal(map[string]any{"creator": creator, "created": created})
	if err != nil {
		return nil, err
	}

	docHash := sha256.Sum256(docJSON)
	optsHash := sha256.Sum256(optsJSON)

	combined := sha256.Sum256(append(optsHash[:], docHash[:]...))
	return combined[:], nil
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

// EncodePublicKeyPEM renders an RSA public key as PKIX PEM, the encoding
// embedded in actor documents.
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", errors.Wrap(err, "activitypub", "EncodePublicKeyPEM", "marshaling key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
