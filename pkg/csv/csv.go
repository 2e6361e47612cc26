// Package csv renders transaction listings as CSV.
package csv

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/yurifrl/thyme/pkg/models"
)

var header = []string{"Id", "Date", "Account", "Description", "Category", "Amount"}

// Create writes a header and one line per view.
func Create(views []models.TransactionView) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, v := range views {
		record := []string{
			strconv.FormatInt(v.ID, 10),
			v.Date.Format(time.DateOnly),
			v.AccountNickname,
			v.Description,
			v.CategoryName,
			v.Amount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
