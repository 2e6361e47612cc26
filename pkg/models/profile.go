package models

// ColumnProfile describes where an institution puts each field in its
// delimited export.
type ColumnProfile struct {
	Name              string `yaml:"name"`
	DateColumn        int    `yaml:"date_column"`
	DateFormat        string `yaml:"date_format"`
	DescriptionColumn int    `yaml:"description_column"`
	AmountColumn      int    `yaml:"amount_column"`
	AmountNegated     bool   `yaml:"amount_negated"`
	// SkipRows leading rows (headers) are dropped before row parsing.
	SkipRows int `yaml:"skip_rows"`
}

// MinColumns is the number of fields a row needs for this profile.
func (p ColumnProfile) MinColumns() int {
	return max(p.DateColumn, p.DescriptionColumn, p.AmountColumn) + 1
}
