package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opencontent-labs/c2pa-go/internal/config"
)

var log = logrus.New()

type rootOptions struct {
	sign    bool
	verify  bool
	boxdebug bool
	debug   bool

	keystore string
	password string
	alias    string
	alg      string

	creativework string
	out          string
	c2paDump     string
	repackage    bool

	configPath string
	historyDB  string
}

// NewRootCommand builds the c2patool root command: one tool, two modes,
// matching spec.md §6's external interface exactly. There are no
// subcommands — cobra is used here purely for its flag parsing and usage
// text, the way the teacher uses it for its own single-purpose commands.
func NewRootCommand(version, commit, date string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "c2patool <asset>",
		Short: "Sign or verify C2PA provenance manifests embedded in JPEG files",
		Long: `c2patool embeds and validates C2PA (Coalition for Content Provenance
and Authenticity) manifests in JPEG assets.

Run with --sign and a keystore to produce a signed copy of an asset.
Run with --verify (the default) to validate a manifest already embedded
in an asset.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.sign, "sign", false, "sign the asset (default is verify)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "verify the asset's embedded manifest")

	cmd.Flags().StringVar(&opts.keystore, "keystore", "", "path to a PKCS12/JKS/JCEKS keystore holding the signer identity")
	cmd.Flags().StringVar(&opts.password, "password", "", "keystore password")
	cmd.Flags().StringVar(&opts.alias, "alias", "", "keystore entry alias (accepted but ignored: the PKCS12 loader uses the store's single key entry)")
	cmd.Flags().StringVar(&opts.alg, "alg", "", "override the default hash algorithm (sha256, sha384 or sha512)")

	cmd.Flags().StringVar(&opts.creativework, "creativework", "", "path to a JSON schema.org CreativeWork document to embed as an assertion")
	cmd.Flags().StringVar(&opts.out, "out", "", "output JPEG path (sign mode; defaults to <asset>.c2pa.jpg)")
	cmd.Flags().StringVar(&opts.c2paDump, "c2pa", "", "side-dump the raw JUMBF store to this path")
	cmd.Flags().BoolVar(&opts.repackage, "repackage", false, "wrap a prior manifest as a parentOf ingredient with a c2pa.repackaged action")

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.boxdebug, "boxdebug", false, "enable debug logging and log one line per box of the manifest store after signing or verifying")

	cmd.Flags().StringVar(&opts.configPath, "config", ".c2pa.yaml", "path to the optional defaults file")
	cmd.Flags().StringVar(&opts.historyDB, "history-db", "", "path to the operation history sqlite database (overrides config; empty disables)")

	return cmd
}

func loadEffectiveConfig(cmd *cobra.Command, opts *rootOptions) *config.Config {
	cfg, err := config.Load(opts.configPath)
	if err != nil && opts.debug {
		log.WithError(err).Warn("failed to load config file")
	}
	if opts.alg != "" {
		cfg.Alg = opts.alg
	}
	// --history-db is only applied when the flag was actually passed, so
	// that an explicit --history-db "" disables history recording instead
	// of being indistinguishable from "flag omitted".
	if cmd.Flags().Changed("history-db") {
		cfg.HistoryDB = opts.historyDB
	}
	return cfg
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{})
}
