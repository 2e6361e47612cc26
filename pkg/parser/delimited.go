package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/yurifrl/thyme/pkg/models"
)

// ParseDelimited parses comma separated, optionally quoted rows with the
// given column profile. Malformed rows are counted in Batch.Failures; only
// an unreadable stream is an error.
func (p *Parser) ParseDelimited(data []byte, profile models.ColumnProfile) (*Batch, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // allow variable columns, ParseRow validates
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	p.logger.Debug("parsing delimited statement", "profile", profile.Name, "total_records", len(records))

	batch := p.parseRows(profile, records)

	p.logger.Debug("delimited parsing complete", "profile", profile.Name, "drafts", len(batch.Drafts), "failures", len(batch.Failures))
	return batch, nil
}
