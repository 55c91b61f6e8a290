package models

import (
	"path/filepath"
	"strings"
)

// DocumentKind identifies the concrete container format of an uploaded
// document. The kind is decided once at the transport boundary; the
// pipeline never sniffs bytes or filenames itself.
type DocumentKind string

const (
	KindPDF      DocumentKind = "pdf"
	KindDOCX     DocumentKind = "docx"
	KindXLSX     DocumentKind = "xlsx"
	KindMarkdown DocumentKind = "markdown"
	KindJSON     DocumentKind = "json"
	KindYAML     DocumentKind = "yaml"
)

// Structured reports whether the kind is a structured-value container
// rather than a paged one.
func (k DocumentKind) Structured() bool {
	return k == KindJSON || k == KindYAML
}

// DetectKind maps an upload's filename and content type to a DocumentKind.
// Unknown inputs fall back to JSON, matching the service's historic
// behaviour of treating non-PDF uploads as JSON documents.
func DetectKind(filename, contentType string) DocumentKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".xlsx":
		return KindXLSX
	case ".md", ".markdown":
		return KindMarkdown
	case ".yaml", ".yml":
		return KindYAML
	case ".json":
		return KindJSON
	}
	switch contentType {
	case "application/pdf":
		return KindPDF
	case "text/markdown":
		return KindMarkdown
	case "application/yaml", "text/yaml":
		return KindYAML
	}
	return KindJSON
}

// Chunk is a contiguous window of document text with its ordinal position
// and source provenance. Immutable once created.
type Chunk struct {
	Content string
	Ordinal int
	Source  string
}

// QAPair is the per-question result: the original question, the
// synthesized answer, and a supporting quote from the document (empty when
// no supporting quote exists).
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}
