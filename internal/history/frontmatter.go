package history

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("history: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("history: malformed frontmatter")
)

// Record captures the provenance of one archived analysis: which subject was
// assessed, against which category and scale, and which earlier run it
// supersedes.
type Record struct {
	ResultID   string
	Subject    string
	Category   string
	CategoryID string
	Scale      string
	ScaleID    string
	RerunOf    string
	CreatedAt  time.Time
}

// ParseFrontMatter extracts the record and body from a document that starts
// with `---` YAML fences.
func ParseFrontMatter(content []byte) (Record, []byte, error) {
	if len(content) == 0 {
		return Record{}, nil, ErrMissingFrontMatter
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Record{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Record{}, nil, ErrMalformedFrontMatter
	}
	var envelope assayEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return Record{}, nil, fmt.Errorf("history: parse frontmatter: %w", err)
	}
	record, err := envelope.toRecord()
	if err != nil {
		return Record{}, nil, err
	}
	return record, parts[1], nil
}

// WriteFrontMatter renders a record + body with YAML fences.
func WriteFrontMatter(record Record, body []byte) ([]byte, error) {
	if record.ResultID == "" {
		return nil, fmt.Errorf("history: record missing result id")
	}
	envelope := assayEnvelope{}
	envelope.fromRecord(record)
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("history: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

type assayEnvelope struct {
	Assay assayRecord `yaml:"assay"`
}

type assayRecord struct {
	Result     string `yaml:"result"`
	Subject    string `yaml:"subject,omitempty"`
	Category   string `yaml:"category"`
	CategoryID string `yaml:"category_id"`
	Scale      string `yaml:"scale"`
	ScaleID    string `yaml:"scale_id"`
	RerunOf    string `yaml:"rerun_of,omitempty"`
	Created    string `yaml:"created"`
}

func (e assayEnvelope) toRecord() (Record, error) {
	if e.Assay.Result == "" || e.Assay.CategoryID == "" || e.Assay.ScaleID == "" {
		return Record{}, ErrMalformedFrontMatter
	}
	created, err := parseTime(e.Assay.Created)
	if err != nil {
		return Record{}, fmt.Errorf("history: parse created timestamp: %w", err)
	}
	return Record{
		ResultID:   e.Assay.Result,
		Subject:    e.Assay.Subject,
		Category:   e.Assay.Category,
		CategoryID: e.Assay.CategoryID,
		Scale:      e.Assay.Scale,
		ScaleID:    e.Assay.ScaleID,
		RerunOf:    e.Assay.RerunOf,
		CreatedAt:  created,
	}, nil
}

func (e *assayEnvelope) fromRecord(record Record) {
	e.Assay.Result = record.ResultID
	e.Assay.Subject = record.Subject
	e.Assay.Category = record.Category
	e.Assay.CategoryID = record.CategoryID
	e.Assay.Scale = record.Scale
	e.Assay.ScaleID = record.ScaleID
	e.Assay.RerunOf = record.RerunOf
	e.Assay.Created = record.CreatedAt.UTC().Format(timeLayout)
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("history: empty created timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
