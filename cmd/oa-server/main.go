package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelkehle/oa-response/internal/amendment"
	"github.com/joelkehle/oa-response/internal/blob"
	"github.com/joelkehle/oa-response/internal/config"
	"github.com/joelkehle/oa-response/internal/export"
	"github.com/joelkehle/oa-response/internal/httpapi"
	"github.com/joelkehle/oa-response/internal/officeaction"
	"github.com/joelkehle/oa-response/internal/priorart"
	"github.com/joelkehle/oa-response/internal/rejections"
	"github.com/joelkehle/oa-response/internal/store"
	"github.com/joelkehle/oa-response/internal/textextract"
)

func main() {
	configPath := flag.String("config", "oa-response.toml", "Path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("failed to initialize sqlite store (%s): %v", cfg.Storage.DBPath, err)
	}
	defer st.Close()

	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	defer closeBlobs()

	var extractors []officeaction.Extractor
	if cfg.DocAIEnabled() {
		docai, err := textextract.NewDocAIExtractor(ctx, textextract.DocAIConfig{
			ProjectID:   cfg.DocAI.ProjectID,
			Location:    cfg.DocAI.Location,
			ProcessorID: cfg.DocAI.ProcessorID,
		})
		if err != nil {
			log.Fatalf("documentai extractor: %v", err)
		}
		defer docai.Close()
		extractors = append(extractors, docai)
		log.Printf("documentai extraction enabled (processor %s)", cfg.DocAI.ProcessorID)
	}
	extractors = append(extractors, textextract.NewBasicExtractor())

	deps := httpapi.Deps{
		Store:           st,
		Ingestor:        officeaction.NewIngestor(extractors, blobs, st, nil),
		Assembler:       export.NewAssembler(export.NewChromiumPDFRenderer()),
		Blobs:           blobs,
		Tenants:         cfg.Server.Tenants,
		DocAIConfigured: cfg.DocAIEnabled(),
	}

	if cfg.LLM.APIKey != "" {
		exec := rejections.NewJSONExecutor(rejections.NewAnthropicCaller(cfg.LLM.APIKey, cfg.LLM.Model))
		deps.Parser = rejections.NewParser(exec)
		deps.Analyzer = rejections.NewAnalyzer(exec)
		deps.Composer = amendment.NewComposer(exec)
		deps.LLMConfigured = true
	} else {
		log.Printf("no LLM api key configured: parse, analyze, and compose endpoints disabled")
	}

	if cfg.PriorArtEnabled() {
		client, err := priorart.NewClient(priorart.ClientConfig{
			BaseURL: cfg.PriorArt.BaseURL,
			APIKey:  cfg.PriorArt.APIKey,
		})
		if err != nil {
			log.Fatalf("prior art client: %v", err)
		}
		deps.Enricher = priorart.NewEnricher(client, cfg.PriorArtStagger())
		deps.PriorArtConfigured = true
	}

	srv := &http.Server{
		Addr:              cfg.Server.Bind,
		Handler:           httpapi.NewServer(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Printf("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("oa-response server listening on %s (tenants: %d)", cfg.Server.Bind, len(cfg.Server.Tenants))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}

// openBlobStore picks GCS when a bucket is configured, otherwise the local
// directory store.
func openBlobStore(ctx context.Context, cfg config.Config) (blob.Store, func(), error) {
	if cfg.Storage.Bucket != "" {
		gcs, err := blob.NewGCSStore(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("blob storage: gcs bucket %s", cfg.Storage.Bucket)
		return gcs, func() { _ = gcs.Close() }, nil
	}
	dir, err := blob.NewDirStore(cfg.Storage.BlobDir)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("blob storage: local directory %s", cfg.Storage.BlobDir)
	return dir, func() {}, nil
}
