package parser

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/thyme/pkg/models"
)

type FileType string

const (
	Delimited   FileType = "delimited"
	Spreadsheet FileType = "xls"
	TagDocument FileType = "tagged"
	Unknown     FileType = ""
)

type Parser struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Parser {
	return &Parser{
		logger: logger,
	}
}

// Batch is the result of parsing every row of a delimited or spreadsheet
// source. Failures holds one entry per skipped row.
type Batch struct {
	Drafts   []models.Draft
	Failures []*RowError
}

// DetectType picks the parser for a file from its extension.
func DetectType(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return Delimited
	case ".xls":
		return Spreadsheet
	case ".qfx", ".ofx":
		return TagDocument
	}
	return Unknown
}

// IsTagDocument reports whether filename has a tagged statement extension.
func IsTagDocument(filename string) bool {
	return DetectType(filename) == TagDocument
}
