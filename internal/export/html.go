package export

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/oa-response/internal/amendment"
)

// buildMarkdown renders the selected portions of the response package as
// GFM markdown. The same markdown feeds both the PDF path (via HTML) and
// previews.
func buildMarkdown(content Content, opts Options, docType DocumentType) string {
	var b strings.Builder

	title := strings.TrimSpace(content.Title)
	if title == "" {
		title = "Amendment and Response"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if opts.IncludeMetadata {
		if content.ApplicationNo != "" {
			fmt.Fprintf(&b, "**Application No.:** %s  \n", content.ApplicationNo)
		}
		if content.MailingDate != nil {
			fmt.Fprintf(&b, "**Office Action Mailed:** %s  \n", content.MailingDate.Format("January 2, 2006"))
			if d := CalculateResponseDeadline(content.MailingDate); d != nil {
				fmt.Fprintf(&b, "**Response Due:** %s  \n", d.Format("January 2, 2006"))
			}
		}
		if opts.DocketNumber != "" {
			fmt.Fprintf(&b, "**Docket No.:** %s  \n", opts.DocketNumber)
		}
		if opts.FirmName != "" {
			fmt.Fprintf(&b, "**Firm:** %s  \n", opts.FirmName)
		}
		if opts.AttorneyName != "" {
			fmt.Fprintf(&b, "**Attorney:** %s  \n", opts.AttorneyName)
		}
		b.WriteString("\n")
	}

	if docType == DocASMB || (docType == DocFull && content.IncludeASMB) {
		writeCoverPage(&b, content)
	}
	if docType == DocFull || docType == DocCLM {
		writeClaimListing(&b, content.ClaimAmendments)
	}
	if docType == DocFull || docType == DocREM {
		writeRemarks(&b, content.ArgumentSections)
	}
	return b.String()
}

func writeCoverPage(b *strings.Builder, content Content) {
	b.WriteString("## Amendment Submission\n\n")
	subType := content.SubmissionType
	if subType == "" {
		subType = SubmissionAmendment
	}
	if statement, err := SubmissionStatement(subType, content.MailingDate); err == nil {
		b.WriteString(statement + "\n\n")
	}
	fmt.Fprintf(b, "Inventor(s): %s\n\n", FormatInventors(content.Inventors))
}

func writeClaimListing(b *strings.Builder, claims []amendment.ClaimAmendment) {
	if len(claims) == 0 {
		return
	}
	b.WriteString("## Amendments to the Claims\n\n")
	b.WriteString("This listing of claims replaces all prior versions and listings of claims in the application.\n\n")
	for _, c := range claims {
		label := claimStatusLabel(c.Status)
		fmt.Fprintf(b, "**%d.** (%s)", c.ClaimNumber, label)
		switch c.Status {
		case amendment.ClaimCancelled:
			b.WriteString("\n\n")
		case amendment.ClaimCurrentlyAmended, amendment.ClaimNew:
			fmt.Fprintf(b, " %s\n\n", c.AmendedText)
		default:
			fmt.Fprintf(b, " %s\n\n", c.OriginalText)
		}
	}
}

func claimStatusLabel(s amendment.ClaimStatus) string {
	switch s {
	case amendment.ClaimCurrentlyAmended:
		return "Currently Amended"
	case amendment.ClaimPreviouslyPresented:
		return "Previously Presented"
	case amendment.ClaimNew:
		return "New"
	case amendment.ClaimCancelled:
		return "Cancelled"
	}
	return string(s)
}

func writeRemarks(b *strings.Builder, sections []amendment.ArgumentSection) {
	if len(sections) == 0 {
		return
	}
	b.WriteString("## Remarks\n\n")
	for _, sec := range sections {
		fmt.Fprintf(b, "### %s\n\n%s\n\n", sec.Title, sec.Content)
		if len(sec.References) > 0 {
			fmt.Fprintf(b, "References discussed: %s\n\n", strings.Join(sec.References, "; "))
		}
	}
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// buildHTMLDocument wraps the rendered markdown in a self-contained HTML
// page suitable for print layout.
func buildHTMLDocument(content Content, opts Options, docType DocumentType) (string, error) {
	var body strings.Builder
	if err := htmlRenderer.Convert([]byte(buildMarkdown(content, opts, docType)), &body); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Amendment Response</title>" +
		"<style>" + documentCSS + "</style></head><body>" +
		"<div class='doc-wrap'>" + body.String() + "</div>" +
		"</body></html>", nil
}

const documentCSS = `
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
body{font-family:"Times New Roman",Georgia,serif;font-size:12pt;line-height:1.5;color:#1c1917;background:#fff;margin:0;padding:0.6rem;}
.doc-wrap{max-width:850px;margin:0 auto;}
h1{font-size:16pt;text-align:center;margin-bottom:1.2rem;}
h2{font-size:13pt;border-bottom:1px solid #a8a29e;padding-bottom:0.15rem;margin-top:1.4rem;break-after:avoid;}
h3{font-size:12pt;margin-top:1rem;}
ins,.claim-amended ins{text-decoration:underline;}
del{text-decoration:line-through;}
table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}
blockquote{margin-left:1.5rem;border-left:3px solid #d6d3d1;padding-left:0.6rem;color:#44403c;}
@media print{ @page{size:letter;margin:12mm;} body{padding:0;} .doc-wrap{max-width:none;} }
`
