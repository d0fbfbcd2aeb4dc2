package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"document-embed/internal/models"
)

// Extractor returns the raw text of one file.
type Extractor func(path string) (string, error)

var extractors = map[string]Extractor{
	".pdf":  parsePDF,
	".docx": parseDOCX,
	".pptx": parsePPTX,
	".xlsx": parseXLSX,
	".xlsm": parseWorkbook,
	".xltx": parseWorkbook,
	".md":   parseMarkdown,
	".txt":  parseText,
}

// Supported reports whether path has an extension Extract can read.
func Supported(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the text of the document at path, dispatching on its extension.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extract, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnsupported, ext)
	}
	return extract(path)
}

func parsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var content strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		content.WriteString(pageText)
	}
	return content.String(), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	// GetContent returns the raw document.xml
	return extractTextFromXML(r.Editable().GetContent(), "w:t", "w:p"), nil
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var slides []*zip.File
	for _, file := range f.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file)
		}
	}
	// slide10 after slide9
	sort.Slice(slides, func(i, j int) bool {
		a, b := slides[i].Name, slides[j].Name
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	var content strings.Builder
	for _, file := range slides {
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		content.WriteString(extractTextFromXML(string(data), "a:t", "a:p"))
		content.WriteString("\n")
	}
	return content.String(), nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for _, sheet := range f.Sheets {
		content.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				content.WriteString(cell.String() + "\t")
			}
			content.WriteString("\n")
		}
	}
	return content.String(), nil
}

// parseWorkbook reads macro-enabled and template workbooks that tealeg/xlsx rejects.
func parseWorkbook(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var content strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		content.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				content.WriteString(cell + "\t")
			}
			content.WriteString("\n")
		}
	}
	return content.String(), nil
}

func parseMarkdown(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return markdownText(data)
}

// markdownText renders the plain text of a markdown document, one block per line.
func markdownText(source []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractTextFromXML collects the character data of every <textTag> element,
// ending a line at each closing </paraTag>.
func extractTextFromXML(xmlContent, textTag, paraTag string) string {
	var out strings.Builder
	open := "<" + textTag
	closeText := "</" + textTag + ">"
	closePara := "</" + paraTag + ">"

	rest := xmlContent
	for {
		start := strings.Index(rest, open)
		para := strings.Index(rest, closePara)
		if para >= 0 && (start < 0 || para < start) {
			out.WriteString("\n")
			rest = rest[para+len(closePara):]
			continue
		}
		if start < 0 {
			break
		}
		rest = rest[start+len(open):]
		// skip <w:tab/>, <w:tbl> and friends sharing the prefix
		if rest == "" || (rest[0] != '>' && rest[0] != ' ') {
			continue
		}
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		if gt > 0 && rest[gt-1] == '/' {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closeText)
		if end < 0 {
			break
		}
		out.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len(closeText):]
	}
	return out.String()
}

var xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
