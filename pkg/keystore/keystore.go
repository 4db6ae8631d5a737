// Package keystore loads a signer identity (private key and X.509
// certificate chain) from a PKCS12/JKS/JCEKS file, per spec.md §6's
// "--keystore PATH --password P --alias A" flag group and §4.J.
package keystore

import (
	"crypto"
	"crypto/x509"
	"fmt"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/opencontent-labs/c2pa-go/pkg/cose"
)

// Format is the on-disk keystore encoding, detected by magic bytes.
type Format string

const (
	FormatPKCS12 Format = "pkcs12"
	FormatJKS    Format = "jks"
	FormatJCEKS  Format = "jceks"
)

// Sniff detects a keystore's format from its leading magic bytes (§6):
// 0xfeedfeed marks a JKS store, 0xcececece a JCEKS store; anything else is
// assumed to be PKCS12 (which has no single fixed magic, being a BER/DER
// PFX structure).
func Sniff(data []byte) Format {
	if len(data) >= 4 {
		magic := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
		switch magic {
		case 0xfeedfeed:
			return FormatJKS
		case 0xcececece:
			return FormatJCEKS
		}
	}
	return FormatPKCS12
}

// ErrUnsupportedFormat is returned for JKS/JCEKS stores: no parser for
// either exists anywhere in this implementation's dependency surface, and
// fabricating one is out of bounds (see DESIGN.md Open Questions).
type ErrUnsupportedFormat struct{ Format Format }

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("keystore: %s keystores are not supported (no parser available); use a PKCS12 store", e.Format)
}

// Load decodes a keystore file's bytes into a signer identity: the leaf
// private key, paired with the ordered certificate chain (leaf first)
// suitable for installation as the COSE x5chain header. alias is accepted
// and ignored for every store: pkcs12.DecodeChain returns the store's
// single private key and its chain and exposes no alias selection, so a
// store bundling several key entries cannot be narrowed to one by alias.
func Load(data []byte, password, alias string) (*cose.Identity, error) {
	format := Sniff(data)
	if format != FormatPKCS12 {
		return nil, &ErrUnsupportedFormat{Format: format}
	}
	return loadPKCS12(data, password)
}

func loadPKCS12(data []byte, password string) (*cose.Identity, error) {
	key, leaf, cas, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode pkcs12: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("keystore: pkcs12 private key of type %T does not implement crypto.Signer", key)
	}

	chain := append([]*x509.Certificate{leaf}, cas...)
	return &cose.Identity{Key: signer, Chain: chain}, nil
}
