// Package validator performs the pre-flight check of an export file
// before an import commits resources to a full parse and transaction.
// It validates the file itself, the document structure, and a bounded
// sample of records against a field rule table.
package validator

import (
	"bufio"
	"encoding/xml"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/healthmon/importer/internal/config"
	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/sources/applehealth"
)

// Validator checks export files against structural and field rules.
type Validator struct {
	rules      map[string]FieldRule
	sampleSize int
	maxErrors  int
	warnBytes  int64
	warnCount  int
	log        *zap.Logger
}

// New creates a validator with the default Apple Health rule table.
func New(cfg config.ValidatorConfig, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		rules:      DefaultRules(),
		sampleSize: cfg.SampleSize,
		maxErrors:  cfg.MaxErrors,
		warnBytes:  cfg.WarnFileBytes,
		warnCount:  cfg.WarnRecords,
		log:        log,
	}
}

// SetRules replaces the field rule table.
func (v *Validator) SetRules(rules map[string]FieldRule) {
	v.rules = rules
}

// ValidateFile runs the full pre-flight check. The result is never
// persisted; the caller aborts the import when IsValid is false.
func (v *Validator) ValidateFile(path string) *models.ValidationResult {
	result := &models.ValidationResult{IsValid: true}

	info, err := os.Stat(path)
	if err != nil {
		result.AddError("file not found: %s", path)
		return result
	}
	if info.Size() > v.warnBytes {
		result.AddWarning("file is %d MB; validation and import may take a while", info.Size()>>20)
	}

	f, err := os.Open(path)
	if err != nil {
		result.AddError("cannot open file: %v", err)
		return result
	}
	defer func() {
		_ = f.Close()
	}()

	r := bufio.NewReaderSize(f, 64<<10)
	v.checkHead(r, result)
	v.scan(r, result)

	v.log.Info("validation finished",
		zap.String("file", path),
		zap.Bool("valid", result.IsValid),
		zap.Int("records", result.RecordCount),
		zap.Int("sampled", result.ValidatedRecords),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)))

	return result
}

// checkHead inspects the first bytes without consuming them: UTF-8
// readability and the XML declaration.
func (v *Validator) checkHead(r *bufio.Reader, result *models.ValidationResult) {
	head, err := r.Peek(4 << 10)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		result.AddError("cannot read file: %v", err)
		return
	}
	if len(head) == 0 {
		result.AddError("file is empty")
		return
	}

	// The peek may split a trailing multi-byte rune; trim at most three
	// bytes before the UTF-8 check.
	probe := head
	for i := 0; i < 3 && len(probe) > 0 && !utf8.Valid(probe); i++ {
		probe = probe[:len(probe)-1]
	}
	if !utf8.Valid(probe) {
		result.AddError("file is not valid UTF-8")
	}

	if !strings.HasPrefix(strings.TrimLeft(string(head), " \t\r\n"), "<?xml") {
		result.AddWarning("missing XML declaration; file may not be a health export")
	}
}

// scan walks the document: verifies the root element, counts records,
// and validates a bounded sample against the rule table. It aborts
// once errors exceed the cap, which signals systemic corruption rather
// than a few bad rows.
func (v *Validator) scan(r io.Reader, result *models.ValidationResult) {
	dec := xml.NewDecoder(r)
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.AddError("not well-formed XML: %v", err)
			return
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !sawRoot {
			sawRoot = true
			if start.Name.Local != applehealth.RootElement {
				result.AddError("unexpected root element %q, want %q", start.Name.Local, applehealth.RootElement)
				return
			}
			continue
		}

		if start.Name.Local != applehealth.RecordElement {
			continue
		}

		result.RecordCount++
		if result.ValidatedRecords < v.sampleSize {
			result.ValidatedRecords++
			v.validateRecord(result.RecordCount, start.Attr, result)
		}

		if len(result.Errors) > v.maxErrors {
			result.AddError("stopping early: more than %d errors in the first %d records", v.maxErrors, result.RecordCount)
			return
		}
	}

	if !sawRoot {
		result.AddError("not well-formed XML: no root element")
		return
	}
	if result.RecordCount == 0 {
		result.AddError("no records found in export")
		return
	}
	if result.RecordCount > v.warnCount {
		result.AddWarning("export contains %d records; import will be slow", result.RecordCount)
	}
}

func (v *Validator) validateRecord(n int, attrs []xml.Attr, result *models.ValidationResult) {
	values := make(map[string]string, len(attrs))
	for _, a := range attrs {
		values[a.Name.Local] = a.Value
	}

	for name, rule := range v.rules {
		raw, present := values[name]
		if !present || strings.TrimSpace(raw) == "" {
			if rule.Required {
				result.AddError("record %d: missing required attribute %s", n, name)
			}
			continue
		}

		switch rule.Kind {
		case KindDatetime:
			if _, err := models.ParseExportTime(raw); err != nil {
				result.AddError("record %d: Invalid datetime format for %s: %q", n, name, raw)
				continue
			}
		case KindFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				result.AddError("record %d: %s is not numeric: %q", n, name, raw)
				continue
			}
			v.checkBounds(n, name, f, rule, result)
		case KindInteger:
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				result.AddError("record %d: %s is not an integer: %q", n, name, raw)
				continue
			}
			v.checkBounds(n, name, float64(i), rule, result)
		}

		if rule.Pattern != nil && !rule.Pattern.MatchString(raw) {
			result.AddError("record %d: %s does not match expected pattern: %q", n, name, raw)
		}
		if len(rule.Allowed) > 0 && !slices.Contains(rule.Allowed, raw) {
			result.AddError("record %d: %s has disallowed value %q", n, name, raw)
		}
	}
}

func (v *Validator) checkBounds(n int, name string, f float64, rule FieldRule, result *models.ValidationResult) {
	if rule.Min != nil && f < *rule.Min {
		result.AddError("record %d: %s out of range: %g < %g", n, name, f, *rule.Min)
	}
	if rule.Max != nil && f > *rule.Max {
		result.AddError("record %d: %s out of range: %g > %g", n, name, f, *rule.Max)
	}
}
