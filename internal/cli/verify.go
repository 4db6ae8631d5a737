package cli

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/opencontent-labs/c2pa-go/internal/config"
	"github.com/opencontent-labs/c2pa-go/pkg/c2pa"
)

func runVerify(opts *rootOptions, cfg *config.Config, assetBytes []byte) (c2pa.StatusList, string, error) {
	var trustRoots *x509.CertPool
	if cfg.TrustAnchors != "" {
		pem, err := os.ReadFile(cfg.TrustAnchors)
		if err != nil {
			return nil, "", fmt.Errorf("read trust anchors: %w", err)
		}
		trustRoots = x509.NewCertPool()
		if !trustRoots.AppendCertsFromPEM(pem) {
			return nil, "", fmt.Errorf("no certificates parsed from trust anchors file %s", cfg.TrustAnchors)
		}
	}

	store, statuses, err := c2pa.ExtractAndVerifyJPEG(assetBytes, trustRoots)
	if err != nil {
		return nil, "", err
	}

	manifestLabel := ""
	if m := store.ActiveManifest(); m != nil {
		manifestLabel = m.Label()
	}

	if opts.c2paDump != "" {
		storeBytes, err := store.Box.EncodeToBytes()
		if err != nil {
			return statuses, manifestLabel, fmt.Errorf("encode store for --c2pa dump: %w", err)
		}
		if err := os.WriteFile(opts.c2paDump, storeBytes, 0644); err != nil {
			return statuses, manifestLabel, fmt.Errorf("write %s: %w", opts.c2paDump, err)
		}
	}

	if opts.boxdebug {
		dumpBoxTree(store.Box)
	}

	return statuses, manifestLabel, nil
}
