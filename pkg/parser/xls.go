package parser

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/yurifrl/thyme/pkg/models"
)

const maxSpreadsheetRows = 10000

// ParseXLS reads the first sheet of a legacy Excel export and applies the
// same row contract as ParseDelimited.
func (p *Parser) ParseXLS(data []byte, profile models.ColumnProfile) (*Batch, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}
	if workbook == nil {
		return nil, fmt.Errorf("no workbook stream found")
	}

	rows := workbook.ReadAllCells(maxSpreadsheetRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}

	return p.parseRows(profile, rows), nil
}
