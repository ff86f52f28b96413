package embed

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/voxa/pkg/adapters/embeddings"
	"github.com/harunnryd/voxa/pkg/store"
)

// Store is the slice of the record store the pipeline writes.
type Store interface {
	CreateReportChunk(ctx context.Context, c store.ReportChunk) (store.ReportChunk, error)
	UpdateReportStatus(ctx context.Context, id, status string) error
}

// Pipeline chunks a report, embeds each chunk, and persists the
// results, moving the report to processed or failed.
type Pipeline struct {
	embedder embeddings.Embedder
	store    Store
	logger   *slog.Logger
}

func NewPipeline(embedder embeddings.Embedder, st Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{embedder: embedder, store: st, logger: logger}
}

// ProcessReport runs the full chunk-embed-store pass for one report.
// Returns the number of chunks stored. The first embedding or store
// failure marks the report failed and aborts the pass.
func (p *Pipeline) ProcessReport(ctx context.Context, reportID, title, content string) (int, error) {
	chunks := SplitText(content, DefaultChunkSize, DefaultOverlap)
	stored := 0
	for _, chunk := range chunks {
		vector, err := p.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			p.fail(reportID, err)
			return stored, err
		}
		meta := ExtractMetadata(chunk.Text, title)
		_, err = p.store.CreateReportChunk(ctx, store.ReportChunk{
			ReportID:   reportID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			TokenCount: chunk.TokenCount,
			Company:    meta.Company,
			Section:    meta.Section,
			Abstract:   meta.Abstract,
			FastFacts:  meta.FastFacts,
			Quote:      meta.Quote,
			Embedding:  vector,
		})
		if err != nil {
			p.fail(reportID, err)
			return stored, err
		}
		stored++
	}
	if err := p.store.UpdateReportStatus(ctx, reportID, store.ReportStatusProcessed); err != nil {
		p.logger.Error("report_status_update_failed", "report_id", reportID, "error", err.Error())
		return stored, err
	}
	p.logger.Info("report_embedded", "report_id", reportID, "chunks", stored)
	return stored, nil
}

func (p *Pipeline) fail(reportID string, cause error) {
	p.logger.Error("report_embedding_failed", "report_id", reportID, "error", cause.Error())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.UpdateReportStatus(ctx, reportID, store.ReportStatusFailed); err != nil {
		p.logger.Error("report_status_update_failed", "report_id", reportID, "error", err.Error())
	}
}
