package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageMargin = 25.4 // 1 inch in mm
	ptToMM     = 0.3528
	docTitle   = "Product Requirements Document"
)

type rgb struct{ r, g, b int }

type textStyle struct {
	size  float64
	bold  bool
	color rgb
	after float64
}

var (
	titleStyle    = textStyle{size: 24, bold: true, color: rgb{0x1E, 0x3A, 0x8A}, after: 8}
	heading1Style = textStyle{size: 18, bold: true, color: rgb{0x37, 0x41, 0x51}, after: 4}
	heading2Style = textStyle{size: 14, bold: true, color: rgb{0x4B, 0x55, 0x63}, after: 3}
	heading3Style = textStyle{size: 12, bold: true, color: rgb{0x4B, 0x55, 0x63}, after: 2}
	normalStyle   = textStyle{size: 11, color: rgb{0x1F, 0x29, 0x37}, after: 2}
)

type blockKind int

const (
	blockHeading blockKind = iota
	blockParagraph
	blockListItem
	blockCode
	blockRule
)

type block struct {
	kind  blockKind
	level int
	text  string
}

// PDFRenderer lays out markdown as a Letter-size PDF.
type PDFRenderer struct {
	md  goldmark.Markdown
	now func() time.Time
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{md: goldmark.New(), now: time.Now}
}

func (r *PDFRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, errors.New("empty document")
	}

	blocks := r.parse([]byte(markdown))

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(docTitle, true)
	pdf.SetCreator("aiproductmanager", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	write := func(style textStyle, indent float64, s string) {
		fontStyle := ""
		if style.bold {
			fontStyle = "B"
		}
		pdf.SetFont("Helvetica", fontStyle, style.size)
		pdf.SetTextColor(style.color.r, style.color.g, style.color.b)
		pdf.SetX(pageMargin + indent)
		pdf.MultiCell(0, style.size*ptToMM*1.4, tr(s), "", "L", false)
		pdf.Ln(style.after)
	}

	write(titleStyle, 0, docTitle)
	write(normalStyle, 0, "Generated on "+r.now().Format("2006-01-02 15:04:05"))
	pdf.Ln(4)

	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch b.kind {
		case blockHeading:
			switch b.level {
			case 1:
				write(heading1Style, 0, b.text)
			case 2:
				write(heading2Style, 0, b.text)
			default:
				write(heading3Style, 0, b.text)
			}
		case blockParagraph:
			write(normalStyle, 0, b.text)
		case blockListItem:
			write(normalStyle, 5, b.text)
		case blockCode:
			pdf.SetFont("Courier", "", 9)
			pdf.SetTextColor(normalStyle.color.r, normalStyle.color.g, normalStyle.color.b)
			pdf.MultiCell(0, 4, tr(b.text), "", "L", false)
			pdf.Ln(2)
		case blockRule:
			y := pdf.GetY() + 1
			w, _ := pdf.GetPageSize()
			pdf.SetDrawColor(0xD1, 0xD5, 0xDB)
			pdf.Line(pageMargin, y, w-pageMargin, y)
			pdf.Ln(4)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// parse flattens the markdown into the blocks the layout understands.
func (r *PDFRenderer) parse(src []byte) []block {
	doc := r.md.Parser().Parse(text.NewReader(src))

	var blocks []block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			blocks = append(blocks, block{kind: blockHeading, level: node.Level, text: inlineText(node, src)})
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			if item, ok := n.Parent().(*ast.ListItem); ok {
				if item.FirstChild() == n {
					blocks = append(blocks, block{kind: blockListItem, text: listMarker(item) + inlineText(n, src)})
				} else {
					blocks = append(blocks, block{kind: blockListItem, text: "  " + inlineText(n, src)})
				}
			} else {
				blocks = append(blocks, block{kind: blockParagraph, text: inlineText(n, src)})
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var b strings.Builder
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			blocks = append(blocks, block{kind: blockCode, text: strings.TrimRight(b.String(), "\n")})
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			blocks = append(blocks, block{kind: blockRule})
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	idx := list.Start
	for c := list.FirstChild(); c != nil && c != ast.Node(item); c = c.NextSibling() {
		idx++
	}
	return strconv.Itoa(idx) + ". "
}

// inlineText concatenates the text of n's inline descendants, dropping markup.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
