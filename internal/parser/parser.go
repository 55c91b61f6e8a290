// Package parser turns raw uploaded bytes into a single text document and
// parses the accompanying questions payload. All size and page bounds are
// enforced here, before any embedding or completion work happens.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/satyajitsk27/zania/internal/models"
)

// CheckPayloadSize rejects a payload that exceeds the per-file ceiling.
func CheckPayloadSize(name string, data []byte) error {
	if len(data) > models.MaxPayloadBytes {
		return models.NewValidationError(name, len(data), models.MaxPayloadBytes, models.ErrPayloadTooLarge)
	}
	return nil
}

// ExtractText decodes a document of the given kind into one raw-text string
// plus the source tag carried as chunk provenance.
func ExtractText(data []byte, kind models.DocumentKind) (string, string, error) {
	var (
		text string
		err  error
	)
	switch kind {
	case models.KindPDF:
		text, err = extractPDF(data)
	case models.KindDOCX:
		text, err = extractDOCX(data)
	case models.KindXLSX:
		text, err = extractXLSX(data)
	case models.KindMarkdown:
		text, err = extractMarkdown(data)
	case models.KindJSON:
		text, err = extractJSON(data)
	case models.KindYAML:
		text, err = extractYAML(data)
	default:
		return "", "", fmt.Errorf("unsupported document kind: %s", kind)
	}
	if err != nil {
		return "", "", err
	}
	if n := len([]rune(text)); n > models.MaxTextChars {
		return "", "", models.NewValidationError("extracted text", n, models.MaxTextChars, models.ErrTextTooLarge)
	}
	return text, "uploaded_" + string(kind), nil
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = &models.DecodeError{Kind: models.KindPDF, Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return "", &models.DecodeError{Kind: models.KindPDF, Err: rerr}
	}

	numPages := reader.NumPage()
	if numPages > models.MaxPDFPages {
		return "", models.NewValidationError("page count", numPages, models.MaxPDFPages, models.ErrTooManyPages)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			return "", &models.DecodeError{Kind: models.KindPDF, Err: perr}
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.DecodeError{Kind: models.KindDOCX, Err: err}
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return extractTextFromXML(content, "<w:t"), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", &models.DecodeError{Kind: models.KindXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) > models.MaxPDFPages {
		return "", models.NewValidationError("sheet count", len(sheets), models.MaxPDFPages, models.ErrTooManyPages)
	}

	var sb strings.Builder
	for _, sheetName := range sheets {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractMarkdown walks the goldmark AST and keeps only the text nodes, so
// formatting syntax never pollutes retrieval.
func extractMarkdown(data []byte) (string, error) {
	root := goldmark.New().Parser().Parse(gmtext.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(data))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", &models.DecodeError{Kind: models.KindMarkdown, Err: err}
	}
	return sb.String(), nil
}

func extractJSON(data []byte) (string, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return "", &models.ParseError{Subject: "JSON document", Err: err}
	}
	return renderValue(value)
}

func extractYAML(data []byte) (string, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return "", &models.ParseError{Subject: "YAML document", Err: err}
	}
	return renderValue(stringifyKeys(value))
}

// renderValue produces the canonical text form of a generic structured
// value: indented, with stable key ordering. Scalars render bare.
func renderValue(value any) (string, error) {
	switch value.(type) {
	case map[string]any, []any:
		out, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return "", &models.ParseError{Subject: "structured document", Err: err}
		}
		return string(out), nil
	default:
		return fmt.Sprint(value), nil
	}
}

// stringifyKeys rewrites yaml's map[any]any nodes into map[string]any so
// the value can go through the JSON renderer.
func stringifyKeys(value any) any {
	switch v := value.(type) {
	case map[any]any:
		m := make(map[string]any, len(v))
		for key, val := range v {
			m[fmt.Sprint(key)] = stringifyKeys(val)
		}
		return m
	case map[string]any:
		for key, val := range v {
			v[key] = stringifyKeys(val)
		}
		return v
	case []any:
		for i, val := range v {
			v[i] = stringifyKeys(val)
		}
		return v
	default:
		return v
	}
}

// extractTextFromXML pulls the text runs out of an OOXML body, e.g. "<w:t"
// for docx paragraphs.
func extractTextFromXML(xmlContent, openTag string) string {
	var sb strings.Builder
	parts := strings.Split(xmlContent, openTag)
	closeTag := "</" + strings.TrimPrefix(openTag, "<") + ">"
	for i, part := range parts {
		if i == 0 {
			continue
		}
		// the split also matches longer tag names such as <w:tbl
		if !strings.HasPrefix(part, ">") && !strings.HasPrefix(part, " ") {
			continue
		}
		gt := strings.Index(part, ">")
		if gt < 0 {
			continue
		}
		part = part[gt+1:]
		if end := strings.Index(part, closeTag); end >= 0 {
			sb.WriteString(part[:end])
			sb.WriteString(" ")
		}
	}
	return sb.String()
}
