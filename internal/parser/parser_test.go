package parser

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"textlab/internal/models"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractText_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("  The cat sat.\r\n\r\n\r\n\r\nThe dog ran.  "), 0o644))

	doc, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.\n\nThe dog ran.", doc.Text)
	assert.Equal(t, "txt", doc.Format)
	assert.Equal(t, "notes.txt", doc.Source)
}

func TestExtractBytes_Markdown(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and a [link](http://x.io).\n\n```go\nfmt.Println(1)\n```\n\n- one\n- two\n"

	doc, err := ExtractBytes("readme.md", []byte(src))
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "Title")
	assert.Contains(t, doc.Text, "Some emphasis and a link.")
	assert.Contains(t, doc.Text, "one")
	assert.NotContains(t, doc.Text, "*")
	assert.NotContains(t, doc.Text, "http://x.io")
	assert.NotContains(t, doc.Text, "Println")
}

func TestExtractBytes_DOCX(t *testing.T) {
	data := zipBytes(t, map[string]string{
		"word/document.xml": `<w:document><w:body>` +
			`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world &amp; friends.</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<Relationships/>`,
	})

	doc, err := ExtractBytes("letter.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Hello world & friends.\nSecond paragraph.", doc.Text)
}

func TestExtractBytes_PPTX(t *testing.T) {
	slide := func(s string) string { return `<p:sld><a:t>` + s + `</a:t><a:t> </a:t></p:sld>` }
	data := zipBytes(t, map[string]string{
		"ppt/slides/slide10.xml":      slide("Ten"),
		"ppt/slides/slide2.xml":       slide("Two"),
		"ppt/slides/slide1.xml":       slide("One"),
		"ppt/slides/_rels/slide1.xml": slide("Ignored"),
	})

	doc, err := ExtractBytes("deck.pptx", data)
	require.NoError(t, err)
	assert.Equal(t, "One\n\nTwo\n\nTen", doc.Text)
}

func TestExtractBytes_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	row := sheet.AddRow()
	row.AddCell().Value = "Quarterly"
	row.AddCell().Value = "report"
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	doc, err := ExtractBytes("book.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", doc.Text)
}

func TestExtractBytes_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Macro"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "workbook"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	doc, err := ExtractBytes("book.xlsm", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Macro workbook", doc.Text)
	assert.Equal(t, "xlsm", doc.Format)
}

func TestExtractBytes_Unsupported(t *testing.T) {
	_, err := ExtractBytes("photo.png", []byte{0x89})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestExtractBytes_Corrupt(t *testing.T) {
	_, err := ExtractBytes("broken.docx", []byte("not a zip"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestSplit(t *testing.T) {
	t.Run("short content is one chunk", func(t *testing.T) {
		chunks := Split("  hello world  ", 100, 10)
		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world", chunks[0].Content)
		assert.Equal(t, 1, chunks[0].ChunkID)
	})

	t.Run("long content overlaps", func(t *testing.T) {
		content := strings.Repeat("word ", 100)
		chunks := Split(content, 100, 20)
		require.Greater(t, len(chunks), 4)
		for i, c := range chunks {
			assert.LessOrEqual(t, len(c.Content), 100)
			assert.Equal(t, i+1, c.ChunkID)
		}
		assert.True(t, strings.HasSuffix(strings.TrimSpace(content), strings.TrimSpace(chunks[len(chunks)-1].Content)))
	})

	t.Run("multibyte text without breaks", func(t *testing.T) {
		content := strings.Repeat("日本語のテキスト", 40) + "é"
		chunks := Split(content, 100, 10)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.True(t, utf8.ValidString(c.Content), "chunk %d is not valid UTF-8", c.ChunkID)
			assert.LessOrEqual(t, len(c.Content), 100)
		}
		assert.True(t, strings.HasSuffix(content, chunks[len(chunks)-1].Content))
	})

	t.Run("chunk smaller than a rune", func(t *testing.T) {
		chunks := Split("日本語", 2, 0)
		require.Len(t, chunks, 3)
		assert.Equal(t, "日", chunks[0].Content)
		assert.Equal(t, "語", chunks[2].Content)
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.Empty(t, Split("", 100, 10))
		assert.Empty(t, Split("text", 0, 10))
	})
}
