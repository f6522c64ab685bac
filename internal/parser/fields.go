package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-batch/internal/models"
)

// Account fields a FieldRule can populate.
const (
	FieldAccountNumber = "account_number"
	FieldHolderName    = "holder_name"
	FieldCustomerID    = "customer_id"
	FieldIFSCCode      = "ifsc_code"
	FieldBranch        = "branch"
)

// FieldRule describes how one labelled value is found in statement text.
// Patterns are matched case-insensitively.
type FieldRule struct {
	Field   string `yaml:"field"`
	Pattern string `yaml:"pattern"`
	// Group selects the capture group. Zero takes the last group that
	// captured anything, so alternate labels can share one rule.
	Group int `yaml:"group"`
	// CutAt trims the value at the first occurrence of this word. Names
	// captured up to end of line often run into the next label.
	CutAt string `yaml:"cut_at"`
}

// DefaultFieldRules covers the labels printed on the supported statements.
var DefaultFieldRules = []FieldRule{
	{Field: FieldAccountNumber, Pattern: `Account\s+Number\s*[:\-]?\s*(\d+)`, Group: 1},
	{Field: FieldHolderName, Pattern: `Account\s+Holder\s+Name\s*[:\-]?\s*(.+)`, Group: 1, CutAt: "Customer"},
	{Field: FieldCustomerID, Pattern: `(Customer\s*ID|CIF)\s*[:\-]?\s*(\d+)`},
	{Field: FieldIFSCCode, Pattern: `IFSC\s+Code\s*[:\-]?\s*([A-Z0-9]+)`, Group: 1},
	{Field: FieldBranch, Pattern: `Branch\s*[:\-]?\s*(.+)`, Group: 1, CutAt: "Statement"},
}

// DefaultPeriodPattern captures the start and end of the statement period.
const DefaultPeriodPattern = `Statement\s+Period\s*[:\-]?\s*([0-9A-Za-z\-]+)\s*to\s*([0-9A-Za-z\-]+)`

type compiledRule struct {
	FieldRule
	re *regexp.Regexp
}

// FieldExtractor pulls account metadata out of free statement text.
type FieldExtractor struct {
	rules  []compiledRule
	period *regexp.Regexp
}

// NewFieldExtractor compiles the rule table. Unknown field names and bad
// patterns are rejected here so extraction itself never fails.
func NewFieldExtractor(rules []FieldRule, periodPattern string) (*FieldExtractor, error) {
	fe := &FieldExtractor{}
	for _, r := range rules {
		switch r.Field {
		case FieldAccountNumber, FieldHolderName, FieldCustomerID, FieldIFSCCode, FieldBranch:
		default:
			return nil, fmt.Errorf("unknown account field %q", r.Field)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", r.Field, err)
		}
		if r.Group < 0 || r.Group > re.NumSubexp() {
			return nil, fmt.Errorf("field %s: group %d out of range", r.Field, r.Group)
		}
		fe.rules = append(fe.rules, compiledRule{FieldRule: r, re: re})
	}

	if periodPattern != "" {
		re, err := regexp.Compile("(?i)" + periodPattern)
		if err != nil {
			return nil, fmt.Errorf("statement period: %w", err)
		}
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("statement period pattern needs two capture groups")
		}
		fe.period = re
	}
	return fe, nil
}

// Extract builds the AccountRecord for pdfFile from text. Fields whose
// label is missing stay nil.
func (fe *FieldExtractor) Extract(pdfFile, text string) models.AccountRecord {
	rec := models.AccountRecord{PDFFile: pdfFile}

	for _, r := range fe.rules {
		val, ok := r.find(text)
		if !ok {
			continue
		}
		v := models.StringPtr(val)
		switch r.Field {
		case FieldAccountNumber:
			rec.AccountNumber = v
		case FieldHolderName:
			rec.HolderName = v
		case FieldCustomerID:
			rec.CustomerID = v
		case FieldIFSCCode:
			rec.IFSCCode = v
		case FieldBranch:
			rec.Branch = v
		}
	}

	// Both ends or neither.
	if fe.period != nil {
		if m := fe.period.FindStringSubmatch(text); m != nil {
			from, to := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
			if from != "" && to != "" {
				rec.PeriodFrom = &from
				rec.PeriodTo = &to
			}
		}
	}
	return rec
}

func (r compiledRule) find(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	var val string
	if r.Group > 0 {
		val = m[r.Group]
	} else {
		for i := len(m) - 1; i >= 1; i-- {
			if m[i] != "" {
				val = m[i]
				break
			}
		}
	}

	val = strings.TrimSpace(val)
	if r.CutAt != "" {
		if idx := strings.Index(val, r.CutAt); idx >= 0 {
			val = strings.TrimSpace(val[:idx])
		}
	}
	return val, val != ""
}
