package applehealth

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/healthmon/importer/internal/models"
)

// ParseResult carries the outcome of a streaming parse.
type ParseResult struct {
	Records []*models.HealthRecord
	// Skipped counts records dropped because a required date attribute
	// would not parse. The trusted import path tolerates these; the
	// validated path rejects the file before parsing gets here.
	Skipped int
}

// ParseFile stream-parses an export file.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f)
}

// Parse stream-decodes Record elements from an export document. The
// whole document is walked token by token so exports in the hundreds
// of megabytes never materialize as a DOM.
func Parse(r io.Reader) (*ParseResult, error) {
	dec := xml.NewDecoder(r)
	result := &ParseResult{Records: make([]*models.HealthRecord, 0)}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != RecordElement {
			continue
		}

		var elem recordElement
		if err := dec.DecodeElement(&elem, &start); err != nil {
			return nil, fmt.Errorf("decode record element: %w", err)
		}

		record, err := MapRecord(elem)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}
