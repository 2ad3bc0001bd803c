package textextract

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocAIExtractor is the enhanced extraction path: Google Document AI with
// OCR, so scanned office actions still produce text.
type DocAIExtractor struct {
	client      *documentai.DocumentProcessorClient
	processor   string
	callTimeout time.Duration
}

type DocAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

func NewDocAIExtractor(ctx context.Context, cfg DocAIConfig) (*DocAIExtractor, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" || strings.TrimSpace(cfg.ProcessorID) == "" {
		return nil, fmt.Errorf("documentai project and processor are required")
	}
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	return &DocAIExtractor{
		client:      client,
		processor:   fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, location, cfg.ProcessorID),
		callTimeout: 3 * time.Minute,
	}, nil
}

func (d *DocAIExtractor) Name() string { return "docai" }

func (d *DocAIExtractor) Close() error { return d.client.Close() }

func (d *DocAIExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Document.Text), nil
}
