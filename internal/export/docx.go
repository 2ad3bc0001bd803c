package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/joelkehle/oa-response/internal/amendment"
)

// The DOCX path writes a minimal WordprocessingML package directly: one
// document part, content types, and the package relationship. Word and
// LibreOffice both accept this shape.

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

type docxPara struct {
	text     string
	bold     bool
	heading  bool
	centered bool
}

func renderDOCX(content Content, opts Options, docType DocumentType) ([]byte, error) {
	paras := buildDocxParagraphs(content, opts, docType)

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paras {
		writeDocxParagraph(&doc, p)
	}
	doc.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", doc.String()},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("docx part %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDocxParagraph(b *strings.Builder, p docxPara) {
	b.WriteString("<w:p>")
	if p.heading || p.centered {
		b.WriteString("<w:pPr>")
		if p.centered {
			b.WriteString(`<w:jc w:val="center"/>`)
		}
		b.WriteString("</w:pPr>")
	}
	if p.text != "" {
		b.WriteString("<w:r>")
		if p.bold || p.heading {
			b.WriteString("<w:rPr><w:b/></w:rPr>")
		}
		b.WriteString(`<w:t xml:space="preserve">` + escapeXML(p.text) + `</w:t>`)
		b.WriteString("</w:r>")
	}
	b.WriteString("</w:p>")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return ""
	}
	return buf.String()
}

func buildDocxParagraphs(content Content, opts Options, docType DocumentType) []docxPara {
	var paras []docxPara
	add := func(p docxPara) { paras = append(paras, p) }

	title := strings.TrimSpace(content.Title)
	if title == "" {
		title = "Amendment and Response"
	}
	add(docxPara{text: title, heading: true, centered: true})
	add(docxPara{})

	if opts.IncludeMetadata {
		if content.ApplicationNo != "" {
			add(docxPara{text: "Application No.: " + content.ApplicationNo})
		}
		if content.MailingDate != nil {
			add(docxPara{text: "Office Action Mailed: " + content.MailingDate.Format("January 2, 2006")})
			if d := CalculateResponseDeadline(content.MailingDate); d != nil {
				add(docxPara{text: "Response Due: " + d.Format("January 2, 2006")})
			}
		}
		if opts.DocketNumber != "" {
			add(docxPara{text: "Docket No.: " + opts.DocketNumber})
		}
		if opts.FirmName != "" {
			add(docxPara{text: "Firm: " + opts.FirmName})
		}
		if opts.AttorneyName != "" {
			add(docxPara{text: "Attorney: " + opts.AttorneyName})
		}
		add(docxPara{})
	}

	if docType == DocASMB || (docType == DocFull && content.IncludeASMB) {
		add(docxPara{text: "Amendment Submission", heading: true})
		subType := content.SubmissionType
		if subType == "" {
			subType = SubmissionAmendment
		}
		if statement, err := SubmissionStatement(subType, content.MailingDate); err == nil {
			add(docxPara{text: statement})
		}
		add(docxPara{text: "Inventor(s): " + FormatInventors(content.Inventors)})
		add(docxPara{})
	}

	if (docType == DocFull || docType == DocCLM) && len(content.ClaimAmendments) > 0 {
		add(docxPara{text: "Amendments to the Claims", heading: true})
		add(docxPara{text: "This listing of claims replaces all prior versions and listings of claims in the application."})
		add(docxPara{})
		for _, c := range content.ClaimAmendments {
			label := fmt.Sprintf("%d. (%s)", c.ClaimNumber, claimStatusLabel(c.Status))
			switch c.Status {
			case amendment.ClaimCancelled:
				add(docxPara{text: label, bold: true})
			case amendment.ClaimCurrentlyAmended, amendment.ClaimNew:
				add(docxPara{text: label + " " + c.AmendedText})
			default:
				add(docxPara{text: label + " " + c.OriginalText})
			}
			add(docxPara{})
		}
	}

	if (docType == DocFull || docType == DocREM) && len(content.ArgumentSections) > 0 {
		add(docxPara{text: "Remarks", heading: true})
		for _, sec := range content.ArgumentSections {
			add(docxPara{text: sec.Title, bold: true})
			add(docxPara{text: sec.Content})
			if len(sec.References) > 0 {
				add(docxPara{text: "References discussed: " + strings.Join(sec.References, "; ")})
			}
			add(docxPara{})
		}
	}
	return paras
}
