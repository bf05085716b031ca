// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-digest/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export holds runs and published posts for export.
type Export struct {
	Runs      []types.RunRecord `json:"runs" yaml:"runs"`
	Published []PublishedEntry  `json:"published" yaml:"published"`
}

// Export writes runs matching opts, and the posts published in the same
// period, to w as YAML or JSON.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, opts QueryOptions) error {
	runs, err := s.Runs(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	published, err := s.Published(ctx, opts.Since)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	doc := Export{Runs: runs, Published: published}

	var data []byte
	switch format {
	case FormatYAML, "":
		data, err = yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	_, err = w.Write(data)
	return err
}
