package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"textlab/internal/models"
)

var (
	slideRe     = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	slideTextRe = regexp.MustCompile(`<a:t>([^<]*)</a:t>`)
	docxTextRe  = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	docxParaRe  = regexp.MustCompile(`</w:p>`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// SupportedFormats lists the file extensions ExtractText understands.
var SupportedFormats = []string{"txt", "md", "markdown", "pdf", "docx", "pptx", "xlsx", "xlsm", "xltx", "xltm"}

// ExtractText reads the file at filePath and returns its plain text.
func ExtractText(filePath string) (*models.Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ExtractBytes(filePath, data)
}

// ExtractBytes returns the plain text of an in-memory file. The format is
// taken from name's extension; unknown extensions wrap
// models.ErrUnsupportedFormat.
func ExtractBytes(name string, data []byte) (*models.Document, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	var content string
	var err error
	switch format {
	case "txt", "":
		content = string(data)
	case "md", "markdown":
		content = markdownToText(data)
	case "pdf":
		content, err = parsePDF(data)
	case "docx":
		content, err = parseDOCX(data)
	case "pptx":
		content, err = parsePPTX(data)
	case "xlsx":
		content, err = parseXLSX(data)
	case "xlsm", "xltx", "xltm":
		content, err = parseSpreadsheet(data)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if format == "" {
		format = "txt"
	}

	content = strings.TrimSpace(blankRunRe.ReplaceAllString(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n"))
	log.Debug().Str("source", name).Str("format", format).Int("chars", len(content)).Msg("Extracted text")
	return &models.Document{Text: content, Source: filepath.Base(name), Format: format}, nil
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return docxXMLToText(r.Editable().GetContent()), nil
}

// docxXMLToText keeps the text runs of a WordprocessingML body, one line
// per paragraph.
func docxXMLToText(content string) string {
	var b strings.Builder
	for _, para := range docxParaRe.Split(content, -1) {
		var line strings.Builder
		for _, m := range docxTextRe.FindAllStringSubmatch(para, -1) {
			line.WriteString(html.UnescapeString(m[1]))
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func parsePPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range zr.File {
		m := slideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(content))})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var b strings.Builder
	for _, s := range slides {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		b.WriteString(s.text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func extractTextFromXML(xmlContent string) string {
	var parts []string
	for _, m := range slideTextRe.FindAllStringSubmatch(xmlContent, -1) {
		if s := strings.TrimSpace(html.UnescapeString(m[1])); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if s := strings.TrimSpace(cell.String()); s != "" {
					cells = append(cells, s)
				}
			}
			writeRow(&b, cells)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func parseSpreadsheet(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if s := strings.TrimSpace(cell); s != "" {
					cells = append(cells, s)
				}
			}
			writeRow(&b, cells)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func writeRow(b *strings.Builder, cells []string) {
	if len(cells) == 0 {
		return
	}
	b.WriteString(strings.Join(cells, " "))
	b.WriteString("\n")
}

// markdownToText renders the prose of a Markdown document without markup.
// Code blocks and raw HTML are dropped.
func markdownToText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				switch {
				case node.HardLineBreak():
					b.WriteString("\n")
				case node.SoftLineBreak():
					b.WriteString(" ")
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.TextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// Split cuts content into chunks of at most maxChars characters that
// overlap by overlapChars, preferring to break after a space, newline or
// full stop near the end of each chunk.
func Split(content string, maxChars, overlapChars int) []models.Chunk {
	var chunks []models.Chunk
	for i, s := range chunkContent(content, maxChars, overlapChars) {
		chunks = append(chunks, models.Chunk{Content: s, PageNumber: 1, ChunkID: i + 1})
	}
	return chunks
}

func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := runeBoundary(content, start, min(start+maxChars, contentLen))

		// look for a clean break within the last 10% of the chunk
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= contentLen {
			break
		}
		start = max(end-overlapChars, start+1)
		for start < end && !utf8.RuneStart(content[start]) {
			start++
		}
	}
	return chunks
}

// runeBoundary moves end back onto the start of a rune, or forward past
// the rune when that would leave nothing after start.
func runeBoundary(content string, start, end int) int {
	e := end
	for e > start && e < len(content) && !utf8.RuneStart(content[e]) {
		e--
	}
	if e > start {
		return e
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	return end
}
