package parser

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yurifrl/thyme/pkg/models"
)

const (
	postedLayout     = "20060102150405"
	postedDateLayout = "20060102"
)

var (
	trnRegex = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	orgRegex = tagRegex("ORG")
	fidRegex = tagRegex("FID")

	postedRegex = tagRegex("DTPOSTED")
	amountRegex = tagRegex("TRNAMT")
	nameRegex   = tagRegex("NAME")
	memoRegex   = tagRegex("MEMO")
	fitidRegex  = tagRegex("FITID")
)

// tagRegex matches the text of an element whether or not it is closed
// (SGML and XML flavours of the export).
func tagRegex(tag string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)<%s>([^<\r\n]*)`, tag))
}

// Statement is the content of one tagged statement document.
type Statement struct {
	OrgName  string
	FID      string
	Drafts   []models.Draft
	Failures []*RowError
}

// ParseTagDocument extracts the institution identity and every transaction
// node of a tagged statement export. Nodes missing a required field are
// recorded as failures and skipped.
func (p *Parser) ParseTagDocument(data []byte) (*Statement, error) {
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	st := &Statement{
		OrgName: field(orgRegex, content),
		FID:     field(fidRegex, content),
	}

	matches := trnRegex.FindAllStringSubmatch(content, -1)
	p.logger.Debug("parsing tagged statement", "org", st.OrgName, "fid", st.FID, "nodes", len(matches))

	for i, match := range matches {
		draft, err := parseNode(match[1])
		if err != nil {
			p.logger.Debug("skipping transaction node", "node", i, "err", err)
			st.Failures = append(st.Failures, &RowError{Line: i, Err: err})
			continue
		}
		st.Drafts = append(st.Drafts, draft)
	}

	return st, nil
}

func parseNode(block string) (models.Draft, error) {
	posted := field(postedRegex, block)
	amountStr := field(amountRegex, block)
	description := field(nameRegex, block)
	if description == "" {
		description = field(memoRegex, block)
	}
	fitid := field(fitidRegex, block)

	switch {
	case posted == "":
		return models.Draft{}, fmt.Errorf("%w: DTPOSTED", ErrMissingField)
	case amountStr == "":
		return models.Draft{}, fmt.Errorf("%w: TRNAMT", ErrMissingField)
	case description == "":
		return models.Draft{}, fmt.Errorf("%w: NAME", ErrMissingField)
	case fitid == "":
		return models.Draft{}, fmt.Errorf("%w: FITID", ErrMissingField)
	}

	date, err := parsePosted(posted)
	if err != nil {
		return models.Draft{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return models.Draft{}, fmt.Errorf("%w: %q", ErrBadAmount, amountStr)
	}

	return models.Draft{
		Date:        date,
		Description: description,
		Amount:      amount,
		ExternalID:  fitid,
	}, nil
}

// parsePosted keeps only the first 14 characters (YYYYMMDDHHMMSS) of a
// posted timestamp; fractional seconds and the [offset:TZ] suffix are
// dropped, not converted. Date-only values (YYYYMMDD) are accepted too.
func parsePosted(s string) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	switch {
	case len(s) >= len(postedLayout):
		t, err = time.ParseInLocation(postedLayout, s[:len(postedLayout)], time.UTC)
	case len(s) >= len(postedDateLayout):
		t, err = time.ParseInLocation(postedDateLayout, s[:len(postedDateLayout)], time.UTC)
	default:
		err = fmt.Errorf("too short")
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return models.Day(t), nil
}

func field(r *regexp.Regexp, block string) string {
	if m := r.FindStringSubmatch(block); len(m) > 1 {
		return html.UnescapeString(strings.TrimSpace(m[1]))
	}
	return ""
}
