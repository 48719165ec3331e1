package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/content-fixer/internal/model"
)

var importBatchSize int

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Load content records from JSON or YAML fixtures",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		var recs []model.ContentRecord
		for _, path := range args {
			batch, err := loadFixtures(path)
			if err != nil {
				return err
			}
			recs = append(recs, batch...)
		}

		if dryRun {
			zap.L().Info("import dry run", zap.Int("records", len(recs)))
			return printJSON(map[string]any{"records": len(recs), "dry_run": true})
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		saved := 0
		for _, chunk := range chunkRecords(recs, importBatchSize) {
			n, err := st.SaveMany(ctx, chunk)
			saved += n
			if err != nil {
				return eris.Wrapf(err, "import: saved %d of %d", saved, len(recs))
			}
		}

		zap.L().Info("import complete",
			zap.Int("records", len(recs)),
			zap.Int("saved", saved),
			zap.Strings("files", args),
		)
		return printJSON(map[string]any{"records": len(recs), "saved": saved})
	},
}

// loadFixtures reads a list of content records, or an object with a
// "records" list, from a .json, .yaml or .yml file.
func loadFixtures(path string) ([]model.ContentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		// Records only carry json tags, so YAML goes through a generic
		// document and is re-encoded as JSON.
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, eris.Wrapf(err, "import: parse %s", path)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, eris.Wrapf(err, "import: convert %s", path)
		}
	case ".json":
	default:
		return nil, eris.Errorf("import: unsupported file type %q", path)
	}

	var recs []model.ContentRecord
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Records []model.ContentRecord `json:"records"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, eris.Wrapf(err, "import: decode %s", path)
		}
		recs = wrapped.Records
	} else if err := json.Unmarshal(data, &recs); err != nil {
		return nil, eris.Wrapf(err, "import: decode %s", path)
	}

	for i, r := range recs {
		if strings.TrimSpace(r.Slug) == "" {
			return nil, eris.Errorf("import: %s: record %d has no slug", path, i)
		}
	}
	return recs, nil
}

func chunkRecords(recs []model.ContentRecord, size int) [][]model.ContentRecord {
	if size <= 0 || size >= len(recs) {
		if len(recs) == 0 {
			return nil
		}
		return [][]model.ContentRecord{recs}
	}
	var out [][]model.ContentRecord
	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		out = append(out, recs[start:end])
	}
	return out
}

func init() {
	importCmd.Flags().IntVar(&importBatchSize, "batch-size", 500, "records written per transaction")
	rootCmd.AddCommand(importCmd)
}
