// Package export persists rendered card images: the collector writes
// client-captured PNG batches, and the capture driver produces the same
// artifacts server-side through a headless browser.
package export

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/decklab/decklab/internal/logging"
)

// dataURLPrefix is stripped from submitted payloads before decoding.
const dataURLPrefix = "data:image/png;base64,"

// Entry is one submitted card image: the display name and its
// base64-encoded raster payload (with or without the data-URL prefix).
type Entry struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

// Collector writes card images into the output directory.
type Collector struct {
	outputDir string
	logger    logging.Logger
}

// NewCollector creates a collector writing into outputDir.
func NewCollector(outputDir string, logger logging.Logger) *Collector {
	return &Collector{
		outputDir: outputDir,
		logger:    logger.WithComponent("export"),
	}
}

// SanitizeName maps a card display name to its artifact file name: every
// non-alphanumeric character dropped, lower-cased, fixed .png suffix.
// Distinct names can collide; the last write wins.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String() + ".png"
}

// SaveBatch writes every entry in the batch, best effort: a failing
// entry is logged and skipped, never failing the batch. It returns the
// number of files written and errors only when the output directory
// itself cannot be created.
func (c *Collector) SaveBatch(ctx context.Context, entries []Entry) (int, error) {
	if err := os.MkdirAll(c.outputDir, 0750); err != nil {
		return 0, err
	}

	saved := 0
	for _, entry := range entries {
		payload := strings.TrimPrefix(entry.DataURL, dataURLPrefix)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			c.logger.Warn(ctx, err, "skipping undecodable payload", "card", entry.Name)
			continue
		}

		if err := c.SaveImage(ctx, entry.Name, data); err != nil {
			c.logger.Warn(ctx, err, "skipping unwritable entry", "card", entry.Name)
			continue
		}
		saved++
	}

	c.logger.Info(ctx, "export batch written", "saved", saved, "submitted", len(entries))
	return saved, nil
}

// SaveImage writes one decoded image under the sanitized name,
// overwriting any prior file of the same name.
func (c *Collector) SaveImage(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(c.outputDir, 0750); err != nil {
		return err
	}

	path := filepath.Join(c.outputDir, SanitizeName(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	c.logger.Debug(ctx, "card image written", "card", name, "path", path)
	return nil
}

// OutputDir returns the collector's output directory.
func (c *Collector) OutputDir() string {
	return c.outputDir
}
