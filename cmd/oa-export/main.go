package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/joelkehle/oa-response/internal/export"
)

// oa-export renders a saved amendment content file to DOCX or PDF without a
// running server, for inspecting formatting changes locally.
func main() {
	inputPath := flag.String("input", "", "Path to amendment content JSON")
	outputDir := flag.String("output-dir", ".", "Directory to write the rendered document into")
	format := flag.String("format", "docx", "Output format: docx or pdf")
	docType := flag.String("doc-type", "FULL", "Document type: FULL, ASMB, CLM, or REM")
	firm := flag.String("firm", "", "Firm name for the metadata block")
	attorney := flag.String("attorney", "", "Attorney name for the metadata block")
	docket := flag.String("docket", "", "Docket number for the metadata block")
	noMetadata := flag.Bool("no-metadata", false, "Omit the metadata block")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	var content export.Content
	if err := json.Unmarshal(in, &content); err != nil {
		log.Fatalf("decode input JSON: %v", err)
	}

	var pdf export.PDFRenderer
	if export.Format(*format) == export.FormatPDF {
		pdf = export.NewChromiumPDFRenderer()
	}
	assembler := export.NewAssembler(pdf)

	res, err := assembler.Export(context.Background(), content, export.Options{
		Format:          export.Format(*format),
		DocumentType:    export.DocumentType(*docType),
		IncludeMetadata: !*noMetadata,
		FirmName:        *firm,
		AttorneyName:    *attorney,
		DocketNumber:    *docket,
	})
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	outPath := filepath.Join(*outputDir, res.FileName)
	if err := os.WriteFile(outPath, res.Data, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("wrote %s (%d bytes)", outPath, len(res.Data))
}
