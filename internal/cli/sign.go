package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/opencontent-labs/c2pa-go/internal/config"
	"github.com/opencontent-labs/c2pa-go/pkg/c2pa"
	"github.com/opencontent-labs/c2pa-go/pkg/jpeg"
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
	"github.com/opencontent-labs/c2pa-go/pkg/keystore"
)

func runSign(opts *rootOptions, cfg *config.Config, assetPath string, assetBytes []byte) (c2pa.StatusList, string, error) {
	if opts.keystore == "" {
		return nil, "", fmt.Errorf("--sign requires --keystore")
	}
	ksBytes, err := os.ReadFile(opts.keystore)
	if err != nil {
		return nil, "", fmt.Errorf("read keystore: %w", err)
	}
	identity, err := keystore.Load(ksBytes, opts.password, opts.alias)
	if err != nil {
		return nil, "", fmt.Errorf("load keystore: %w", err)
	}

	priorManifest := findPriorManifest(assetBytes)
	if opts.repackage && priorManifest == nil && opts.debug {
		log.Warn("--repackage given but asset carries no existing manifest")
	}

	store, err := c2pa.NewStore()
	if err != nil {
		return nil, "", fmt.Errorf("new store: %w", err)
	}

	manifestLabel := "urn:uuid:" + uuid.NewString()
	manifest, err := c2pa.NewManifestWithHardBinding(store, manifestLabel, cfg.Alg)
	if err != nil {
		return nil, "", fmt.Errorf("new manifest: %w", err)
	}

	if opts.repackage && priorManifest != nil {
		ingredientURL, err := c2pa.AdoptManifestAsIngredient(store, manifest, priorManifest)
		if err != nil {
			return nil, "", fmt.Errorf("adopt prior manifest as ingredient: %w", err)
		}
		if _, err := c2pa.AddIngredientAssertion(store, manifest, "parentOf", ingredientURL, cfg.Alg); err != nil {
			return nil, "", fmt.Errorf("add ingredient assertion: %w", err)
		}
		if err := c2pa.AddRepackagedActionAssertion(manifest, ingredientURL); err != nil {
			return nil, "", fmt.Errorf("add repackaged action: %w", err)
		}
	}

	if opts.creativework != "" {
		cwBytes, err := os.ReadFile(opts.creativework)
		if err != nil {
			return nil, "", fmt.Errorf("read --creativework: %w", err)
		}
		if err := c2pa.AddCreativeWorkAssertion(manifest, cwBytes); err != nil {
			return nil, "", fmt.Errorf("add creativework assertion: %w", err)
		}
	}

	data, err := manifest.Claim().Data()
	if err != nil {
		return nil, "", fmt.Errorf("read claim: %w", err)
	}
	data.Format = "image/jpeg"
	data.InstanceID = "xmp:iid:" + uuid.NewString()
	if err := manifest.Claim().SetData(data); err != nil {
		return nil, "", fmt.Errorf("set claim: %w", err)
	}

	claimGenerator := cfg.ClaimGenerator
	if claimGenerator == "" {
		claimGenerator = "c2pa-go/c2patool"
	}

	embedded, statuses, err := c2pa.SignAndEmbedJPEG(store, manifest, identity, assetBytes, claimGenerator, cfg.Alg)
	if err != nil {
		return nil, manifestLabel, fmt.Errorf("sign and embed: %w", err)
	}

	outPath := opts.out
	if outPath == "" {
		outPath = assetPath + ".c2pa.jpg"
	}
	if err := os.WriteFile(outPath, embedded, 0644); err != nil {
		return nil, manifestLabel, fmt.Errorf("write %s: %w", outPath, err)
	}

	if opts.c2paDump != "" {
		storeBytes, err := store.Box.EncodeToBytes()
		if err != nil {
			return nil, manifestLabel, fmt.Errorf("encode store for --c2pa dump: %w", err)
		}
		if err := os.WriteFile(opts.c2paDump, storeBytes, 0644); err != nil {
			return nil, manifestLabel, fmt.Errorf("write %s: %w", opts.c2paDump, err)
		}
	}

	if opts.boxdebug {
		dumpBoxTree(store.Box)
	}

	return statuses, manifestLabel, nil
}

// findPriorManifest extracts and opens the manifest store already
// embedded in assetBytes, if any. It returns nil rather than an error
// when no manifest is present, since "no prior manifest" is the common
// case for a first-time sign.
func findPriorManifest(assetBytes []byte) *c2pa.Manifest {
	raw, err := jpeg.ExtractManifestStore(assetBytes)
	if err != nil {
		return nil
	}
	box, err := jumbf.Read(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	priorStore, err := c2pa.OpenStore(box)
	if err != nil {
		return nil
	}
	return priorStore.ActiveManifest()
}
