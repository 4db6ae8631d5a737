package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opencontent-labs/c2pa-go/pkg/c2pa"
	"github.com/opencontent-labs/c2pa-go/pkg/database"
)

func run(cmd *cobra.Command, opts *rootOptions, assetPath string) error {
	if opts.sign && opts.verify {
		return fmt.Errorf("--sign and --verify are mutually exclusive")
	}
	if opts.debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if opts.boxdebug {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := loadEffectiveConfig(cmd, opts)

	assetBytes, err := os.ReadFile(assetPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", assetPath, err)
	}

	mode := "verify"
	var statuses c2pa.StatusList
	var manifestLabel string
	if opts.sign {
		mode = "sign"
		statuses, manifestLabel, err = runSign(opts, cfg, assetPath, assetBytes)
	} else {
		statuses, manifestLabel, err = runVerify(opts, cfg, assetBytes)
	}
	if err != nil {
		recordHistory(cfg.HistoryDB, mode, assetPath, manifestLabel, nil, "error")
		return err
	}

	printStatuses(statuses)

	outcome := "ok"
	if statuses.HasErrors() {
		outcome = "error"
	}
	recordHistory(cfg.HistoryDB, mode, assetPath, manifestLabel, statuses, outcome)

	// Exit code 0 on success, including "signed but validation reported
	// errors" (spec.md §6) — only programming/I/O faults above return a
	// non-nil error.
	return nil
}

func printStatuses(statuses c2pa.StatusList) {
	for _, s := range statuses {
		level := "ok"
		if s.IsError {
			level = "error"
		}
		if s.Message != "" {
			fmt.Printf("[%s] %s %s: %s\n", level, s.Code, s.URL, s.Message)
		} else {
			fmt.Printf("[%s] %s %s\n", level, s.Code, s.URL)
		}
	}
}

// recordHistory appends a row to the optional operation history database.
// Any failure here is logged and swallowed: §4.M makes the history store
// advisory only, never part of the sign/verify status list.
func recordHistory(historyDBPath, mode, assetPath, manifestLabel string, statuses c2pa.StatusList, outcome string) {
	if historyDBPath == "" {
		return
	}

	db, err := database.OpenDatabase(database.Options{Path: historyDBPath, EnableWAL: true})
	if err != nil {
		log.WithError(err).Warn("failed to open history database")
		return
	}
	defer database.CloseDatabase(db)

	codesJSON, err := json.Marshal(statuses)
	if err != nil {
		log.WithError(err).Warn("failed to encode status codes for history")
		codesJSON = []byte("[]")
	}

	entry := database.Entry{
		OccurredAt:     time.Now(),
		Mode:           mode,
		AssetPath:      assetPath,
		ManifestLabel:  manifestLabel,
		StatusCodesRaw: string(codesJSON),
		Outcome:        outcome,
	}
	if err := database.RecordEntry(db, entry); err != nil {
		log.WithError(err).Warn("failed to record history entry")
	}
}
