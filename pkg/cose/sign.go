// Package cose wraps github.com/veraison/go-cose's COSE_Sign1 primitive
// (RFC 9052 §4.2) for c2pa-go's signature box: a detached payload, an
// x5chain header carrying the signer's certificate chain, and a
// signing-key-implied algorithm rather than a caller-chosen one.
package cose

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	gocose "github.com/veraison/go-cose"
)

// Identity bundles a signer's private key and certificate chain (leaf
// first) as loaded from a keystore (pkg/keystore).
type Identity struct {
	Key   crypto.Signer
	Chain []*x509.Certificate
}

// AlgorithmForKey picks the COSE signing algorithm implied by a signer's
// public key. C2PA signs with RSASSA-PSS rather than PKCS#1v1.5 for RSA
// keys, matching the certificate-profile's accepted signing algorithms
// (spec.md §4.H "Certificate profile").
func AlgorithmForKey(pub crypto.PublicKey) (gocose.Algorithm, error) {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		switch k.Curve.Params().BitSize {
		case 256:
			return gocose.AlgorithmES256, nil
		case 384:
			return gocose.AlgorithmES384, nil
		case 521:
			return gocose.AlgorithmES512, nil
		default:
			return 0, fmt.Errorf("cose: unsupported EC curve size %d bits", k.Curve.Params().BitSize)
		}
	case *rsa.PublicKey:
		switch k.Size() * 8 {
		case 2048:
			return gocose.AlgorithmPS256, nil
		case 3072:
			return gocose.AlgorithmPS384, nil
		default:
			return gocose.AlgorithmPS256, nil
		}
	case ed25519.PublicKey:
		return gocose.AlgorithmEdDSA, nil
	default:
		return 0, fmt.Errorf("cose: unsupported public key type %T", pub)
	}
}

// SignDetached produces the CBOR encoding of a COSE_Sign1 structure (RFC
// 9052 §4.2) over payload with the payload field cleared before encoding
// (spec.md §3 "Signature": "claim bytes are the COSE payload"; the claim
// itself travels alongside the signature box, not inside it). The
// x5chain header (RFC 9360) carries id.Chain in DER form, leaf first.
func SignDetached(id *Identity, alg gocose.Algorithm, payload []byte) ([]byte, error) {
	signer, err := gocose.NewSigner(alg, id.Key)
	if err != nil {
		return nil, fmt.Errorf("cose: build signer: %w", err)
	}

	chain := make([]interface{}, len(id.Chain))
	for i, c := range id.Chain {
		chain[i] = append([]byte(nil), c.Raw...)
	}

	msg := gocose.Sign1Message{
		Headers: gocose.Headers{
			Protected: gocose.ProtectedHeader{
				gocose.HeaderLabelAlgorithm: alg,
			},
			Unprotected: gocose.UnprotectedHeader{
				gocose.HeaderLabelX5Chain: chain,
			},
		},
		Payload: payload,
	}

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("cose: sign: %w", err)
	}
	msg.Payload = nil // detach

	return msg.MarshalCBOR()
}

// DecodedSign1 is a parsed COSE_Sign1 structure ready for detached
// verification: the certificate chain has already been extracted from
// the x5chain header and parsed.
type DecodedSign1 struct {
	msg    *gocose.Sign1Message
	tagged bool
	Chain  []*x509.Certificate
}

// cborTag18Prefix is the one-byte encoding of CBOR tag 18 (Signature1),
// which a COSE_Sign1 structure not carrying the full 4-element wrapper
// untagged would be missing (spec.md §4.H.1).
const cborTag18Prefix = 0xd2

// Decode parses a COSE_Sign1 CBOR structure and extracts its x5chain.
func Decode(encoded []byte) (*DecodedSign1, error) {
	tagged := len(encoded) > 0 && encoded[0] == cborTag18Prefix

	var msg gocose.Sign1Message
	if err := msg.UnmarshalCBOR(encoded); err != nil {
		return nil, fmt.Errorf("cose: decode Sign1Message: %w", err)
	}

	raw, ok := msg.Headers.Unprotected[gocose.HeaderLabelX5Chain]
	if !ok {
		return nil, fmt.Errorf("cose: x5chain header missing")
	}

	var ders [][]byte
	switch v := raw.(type) {
	case []byte:
		ders = [][]byte{v}
	case [][]byte:
		ders = v
	case []interface{}:
		for _, e := range v {
			der, ok := e.([]byte)
			if !ok {
				return nil, fmt.Errorf("cose: x5chain entry has unexpected type %T", e)
			}
			ders = append(ders, der)
		}
	default:
		return nil, fmt.Errorf("cose: x5chain header has unexpected type %T", raw)
	}
	if len(ders) == 0 {
		return nil, fmt.Errorf("cose: x5chain is empty")
	}

	chain := make([]*x509.Certificate, len(ders))
	for i, der := range ders {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("cose: parse x5chain[%d]: %w", i, err)
		}
		chain[i] = cert
	}

	return &DecodedSign1{msg: &msg, tagged: tagged, Chain: chain}, nil
}

// Tagged reports whether the decoded structure carried CBOR tag 18
// (Signature1), as spec.md §4.H.1 requires.
func (d *DecodedSign1) Tagged() bool { return d.tagged }

// Verify re-attaches payload (the claim bytes, carried out of band
// because the signature is detached) and checks the signature against
// the leaf certificate's own public key. spec.md §4.H.4 forbids
// supplying any other key: "Obtain the public key from the first cert
// in the chain (no externally supplied key)".
func (d *DecodedSign1) Verify(payload []byte) error {
	alg, ok := d.msg.Headers.Protected[gocose.HeaderLabelAlgorithm]
	if !ok {
		return fmt.Errorf("cose: protected header missing algorithm")
	}
	coseAlg, ok := alg.(gocose.Algorithm)
	if !ok {
		return fmt.Errorf("cose: protected algorithm has unexpected type %T", alg)
	}

	verifier, err := gocose.NewVerifier(coseAlg, d.Chain[0].PublicKey)
	if err != nil {
		return fmt.Errorf("cose: build verifier: %w", err)
	}

	d.msg.Payload = payload
	return d.msg.Verify(nil, verifier)
}
