package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harunnryd/voxa/pkg/extract"
	"github.com/harunnryd/voxa/pkg/store"
)

// maxReportBytes bounds uploaded report size.
const maxReportBytes = 10 << 20

type reportResp struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	Status        string    `json:"status"`
	FileType      string    `json:"file_type"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

func toReportResp(r store.Report) reportResp {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return reportResp{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Tags:          tags,
		Status:        r.Status,
		FileType:      r.FileType,
		FileSizeBytes: r.FileSizeBytes,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Server) listReports(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	reports, err := s.store.Reports(c.Request.Context(), limit)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]reportResp, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportResp(r))
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

func (s *Server) uploadReport(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, errors.New("form field file is required"))
		return
	}
	if header.Size > maxReportBytes {
		badRequest(c, errors.New("file too large"))
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxReportBytes))
	if err != nil {
		s.logger.Error("report_read_failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	content, err := extract.Text(header.Filename, data)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			badRequest(c, err)
			return
		}
		s.logger.Error("report_extract_failed", "file", header.Filename, "error", err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not extract text"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = header.Filename
	}
	var tags []string
	if raw := c.PostForm("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	status := store.ReportStatusProcessed
	if s.pipeline != nil {
		status = store.ReportStatusPending
	}
	created, err := s.store.CreateReport(c.Request.Context(), store.Report{
		Title:         title,
		Description:   c.PostForm("description"),
		Tags:          tags,
		Status:        status,
		ContentText:   content,
		FileType:      strings.TrimPrefix(strings.ToLower(path.Ext(header.Filename)), "."),
		FileSizeBytes: header.Size,
	})
	if err != nil {
		s.storeError(c, err)
		return
	}
	if s.pipeline != nil {
		// Embedding runs after the response; the report stays pending
		// until the pipeline settles its status.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			_, _ = s.pipeline.ProcessReport(ctx, created.ID, created.Title, content)
		}()
	}
	c.JSON(http.StatusCreated, toReportResp(created))
}

type reportChunkResp struct {
	ID         string   `json:"id"`
	ChunkIndex int      `json:"chunk_index"`
	Content    string   `json:"content"`
	TokenCount int      `json:"token_count"`
	Company    string   `json:"company"`
	Section    string   `json:"section"`
	Abstract   string   `json:"abstract"`
	FastFacts  []string `json:"fast_facts"`
	Quote      string   `json:"quote"`
}

func (s *Server) listReportChunks(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.Report(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	chunks, err := s.store.ReportChunks(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]reportChunkResp, 0, len(chunks))
	for _, chunk := range chunks {
		facts := chunk.FastFacts
		if facts == nil {
			facts = []string{}
		}
		out = append(out, reportChunkResp{
			ID:         chunk.ID,
			ChunkIndex: chunk.ChunkIndex,
			Content:    chunk.Content,
			TokenCount: chunk.TokenCount,
			Company:    chunk.Company,
			Section:    chunk.Section,
			Abstract:   chunk.Abstract,
			FastFacts:  facts,
			Quote:      chunk.Quote,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chunks": out})
}

func (s *Server) getReport(c *gin.Context) {
	r, err := s.store.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	resp := gin.H{"report": toReportResp(r), "content_text": r.ContentText}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteReport(c *gin.Context) {
	if err := s.store.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
