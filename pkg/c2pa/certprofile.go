package c2pa

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"time"
)

// CertPurpose is one of the roles a chain member plays, per §4.H's
// certificate profile.
type CertPurpose string

const (
	PurposeSigning   CertPurpose = "signing"
	PurposeCA        CertPurpose = "ca"
	PurposeTimestamp CertPurpose = "timestamp"
	PurposeOCSP      CertPurpose = "ocsp"
)

var allowedSignatureAlgorithms = map[x509.SignatureAlgorithm]bool{
	x509.SHA256WithRSA:   true,
	x509.SHA384WithRSA:   true,
	x509.SHA512WithRSA:   true,
	x509.ECDSAWithSHA256: true,
	x509.ECDSAWithSHA384: true,
	x509.ECDSAWithSHA512: true,
	x509.SHA256WithRSAPSS: true,
	x509.SHA384WithRSAPSS: true,
	x509.SHA512WithRSAPSS: true,
	x509.PureEd25519:     true,
}

// CheckCertificateProfile validates cert against §4.H's per-certificate
// profile for the given purpose (the chain position this cert occupies),
// returning zero or more signingCredential.* statuses. referenced
// identifies the chain entry in emitted status Referenced fields, e.g.
// "Cose_Sign1.x5chain[0]".
func CheckCertificateProfile(cert *x509.Certificate, purpose CertPurpose, signingTime time.Time, selfSigned bool, referenced string) StatusList {
	var statuses StatusList

	if signingTime.Before(cert.NotBefore) || signingTime.After(cert.NotAfter) {
		code := StatusSigningCredentialExpired
		if purpose == PurposeTimestamp {
			code = StatusTimeStampOutsideValidity
		}
		statuses.add(invalidCred(code, referenced, "signing time outside certificate validity window"))
	}

	if !allowedSignatureAlgorithms[cert.SignatureAlgorithm] {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced,
			fmt.Sprintf("unsupported signature algorithm %s", cert.SignatureAlgorithm)))
	}

	switch pub := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		switch pub.Curve {
		case elliptic.P256(), elliptic.P384(), elliptic.P521():
		default:
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "EC key uses an unsupported curve"))
		}
	case *rsa.PublicKey:
		if pub.Size()*8 < 2048 {
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "RSA key is smaller than 2048 bits"))
		}
	}

	if cert.Version != 3 {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "certificate is not X.509 v3"))
	}

	isCA := purpose == PurposeCA
	if isCA && !cert.IsCA {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "CA-position certificate lacks BasicConstraints CA:true"))
	}
	if !isCA && cert.IsCA && cert.BasicConstraintsValid {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "leaf certificate asserts BasicConstraints CA:true"))
	}

	if purpose == PurposeSigning && !selfSigned && len(cert.AuthorityKeyId) == 0 {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "signing leaf is missing AuthorityKeyIdentifier"))
	}

	if cert.KeyUsage == 0 {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "certificate has no KeyUsage extension"))
	} else {
		if !isCA && cert.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "leaf certificate lacks digitalSignature key usage"))
		}
		if !isCA && cert.KeyUsage&x509.KeyUsageCertSign != 0 {
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "non-CA certificate asserts keyCertSign"))
		}
	}

	if !isCA {
		statuses.addAll(checkExtendedKeyUsage(cert, purpose, referenced))
	}

	return statuses
}

func checkExtendedKeyUsage(cert *x509.Certificate, purpose CertPurpose, referenced string) StatusList {
	var statuses StatusList
	if len(cert.ExtKeyUsage) == 0 {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "leaf certificate has no ExtendedKeyUsage"))
		return statuses
	}
	has := func(u x509.ExtKeyUsage) bool {
		for _, eku := range cert.ExtKeyUsage {
			if eku == u {
				return true
			}
		}
		return false
	}
	if has(x509.ExtKeyUsageAny) {
		statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "leaf certificate asserts anyExtendedKeyUsage"))
	}
	switch purpose {
	case PurposeSigning:
		if !has(x509.ExtKeyUsageEmailProtection) {
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "signing leaf missing emailProtection EKU"))
		}
	case PurposeTimestamp:
		if !has(x509.ExtKeyUsageTimeStamping) {
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "timestamp certificate missing timeStamping EKU"))
		}
	case PurposeOCSP:
		if !has(x509.ExtKeyUsageOCSPSigning) {
			statuses.add(invalidCred(StatusSigningCredentialInvalid, referenced, "OCSP certificate missing OCSPSigning EKU"))
		}
	}
	return statuses
}

func invalidCred(code, referenced, message string) Status {
	return Status{Code: code, IsError: true, Message: message, Referenced: referenced}
}

// CheckCertificateChainProfile runs CheckCertificateProfile over an
// entire chain (leaf first), assigning purpose signing to the leaf and ca
// to every subsequent certificate, per §4.H's sign and verify steps.
func CheckCertificateChainProfile(chain []*x509.Certificate, signingTime time.Time) StatusList {
	var statuses StatusList
	for i, cert := range chain {
		purpose := PurposeSigning
		if i > 0 {
			purpose = PurposeCA
		}
		selfSigned := i == 0 && cert.Issuer.String() == cert.Subject.String()
		referenced := fmt.Sprintf("Cose_Sign1.x5chain[%d]", i)
		statuses.addAll(CheckCertificateProfile(cert, purpose, signingTime, selfSigned, referenced))
	}
	return statuses
}

// CheckTrustAnchors verifies that chain's tail is issued by one of roots,
// emitting signingCredential.trusted/untrusted (§4.H last bullet).
func CheckTrustAnchors(chain []*x509.Certificate, roots *x509.CertPool, referenced string) Status {
	if roots == nil || len(chain) == 0 {
		return Status{} // zero-value Status; Verify only calls this when a trust store is supplied
	}
	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}
	_, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return errStatus(StatusSigningCredentialUntrusted, referenced, err.Error())
	}
	return ok(StatusSigningCredentialTrusted, referenced)
}
