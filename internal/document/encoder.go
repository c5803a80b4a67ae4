package document

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"codeberg.org/mutker/hostwatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// Format represents the output format type
type Format string

const (
	// FormatXML outputs the document as XML with a declaration
	FormatXML Format = "xml"
	// FormatJSON outputs the document as indented JSON
	FormatJSON Format = "json"
	// FormatYAML outputs the document as YAML
	FormatYAML Format = "yaml"
)

func (f Format) IsUnknown() bool {
	switch f {
	case FormatXML, FormatJSON, FormatYAML:
		return false
	default:
		return true
	}
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	return string(f)
}

// SupportedFormats returns a list of all supported document formats.
func SupportedFormats() []string {
	return []string{
		string(FormatXML),
		string(FormatJSON),
		string(FormatYAML),
	}
}

// Encoder turns a Document into bytes. Encoding the same Document twice
// yields identical output.
type Encoder interface {
	Encode(doc Document) ([]byte, error)
	Format() Format
}

type encoder struct {
	format Format
}

func NewEncoder(format Format) (Encoder, error) {
	if format.IsUnknown() {
		return nil, errors.New().WithData(errors.ErrInvalidFormat, string(format))
	}

	return &encoder{format: format}, nil
}

func (e *encoder) Format() Format {
	return e.format
}

func (e *encoder) Encode(doc Document) ([]byte, error) {
	r := newRecord(doc)

	switch e.format {
	case FormatXML:
		return encodeXML(r)
	case FormatJSON:
		return encodeJSON(r)
	case FormatYAML:
		return encodeYAML(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", e.format)
	}
}

func encodeXML(r record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to serialize to XML: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

func encodeJSON(r record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to serialize to JSON: %w", err)
	}

	return buf.Bytes(), nil
}

func encodeYAML(r record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to serialize to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to serialize to YAML: %w", err)
	}

	return buf.Bytes(), nil
}
