package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smtools/confgraph/internal/confluence"
	"github.com/smtools/confgraph/internal/core/cluster"
	"github.com/smtools/confgraph/internal/core/drawio"
	"github.com/smtools/confgraph/internal/core/links"
	"github.com/smtools/confgraph/internal/core/markdown"
	"github.com/smtools/confgraph/internal/core/model"
	"github.com/smtools/confgraph/internal/core/pagecache"
	"github.com/smtools/confgraph/internal/core/plantuml"
	"github.com/smtools/confgraph/internal/driver"
)

// Exporter runs the full pipeline for a page: fetch, extract the link
// graph, convert to Markdown, and persist everything to the graph store.
type Exporter struct {
	Driver      driver.GraphDriver
	Pages       confluence.PageFetcher
	LinkInfo    confluence.LinkInfoFetcher
	Lookup      confluence.PageLookup
	Attachments confluence.AttachmentFetcher
	Expander    *plantuml.Expander
	Parser      *links.Parser
	Cache       *pagecache.Cache
	BaseURL     string
}

// ExporterConfig carries the tunables the pipeline needs beyond its
// collaborators.
type ExporterConfig struct {
	BaseURL        string
	CacheSize      int
	IncludeTimeout time.Duration
	VerifySSL      bool
}

func NewExporter(graphDriver driver.GraphDriver, client *confluence.Client, cfg ExporterConfig) *Exporter {
	return &Exporter{
		Driver:      graphDriver,
		Pages:       client,
		LinkInfo:    client,
		Lookup:      client,
		Attachments: client,
		Expander:    plantuml.NewExpander(cfg.IncludeTimeout, cfg.VerifySSL),
		Parser:      links.NewParser(cfg.BaseURL),
		Cache:       pagecache.New(cfg.CacheSize),
		BaseURL:     cfg.BaseURL,
	}
}

func (e *Exporter) BuildIndices(ctx context.Context) error {
	return e.Driver.BuildIndices(ctx)
}

// PageResult is what one pipeline run produced for a page.
type PageResult struct {
	PageID   string           `json:"page_id"`
	Title    string           `json:"title"`
	Degraded bool             `json:"degraded"`
	Links    *model.LinkGraph `json:"links,omitempty"`
	Markdown string           `json:"markdown,omitempty"`
}

// ProcessPage runs the pipeline for one page. A degraded page (deleted
// or access-denied) is recorded in the store and returned without links
// or Markdown; only infrastructure failures surface as errors.
func (e *Exporter) ProcessPage(ctx context.Context, pageID string) (*PageResult, error) {
	page, err := e.Cache.Get(ctx, pageID, func(ctx context.Context) (*model.Page, error) {
		return e.Pages.GetPage(ctx, pageID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %s: %w", pageID, err)
	}

	if err := e.savePageNode(ctx, page); err != nil {
		return nil, fmt.Errorf("failed to save page node %s: %w", pageID, err)
	}

	result := &PageResult{PageID: page.ID, Title: page.Title, Degraded: page.Degraded}
	if page.Degraded {
		return result, nil
	}

	graph, err := e.extractLinks(ctx, page)
	if err != nil {
		return nil, err
	}
	result.Links = graph

	md, err := e.convertMarkdown(ctx, page)
	if err != nil {
		return nil, err
	}
	result.Markdown = md

	return result, nil
}

func (e *Exporter) savePageNode(ctx context.Context, page *model.Page) error {
	params := map[string]interface{}{
		"page_id":    page.ID,
		"title":      page.Title,
		"space_key":  page.SpaceKey,
		"labels":     page.Labels,
		"degraded":   page.Degraded,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	_, err := e.Driver.ExecuteQuery(ctx, driver.SavePageNodeQuery, params)
	return err
}

// extractLinks fetches the page's link panels, classifies and enriches
// them, and replaces the page's edges in the store.
func (e *Exporter) extractLinks(ctx context.Context, page *model.Page) (*model.LinkGraph, error) {
	html, fetchedURL, err := e.LinkInfo.GetLinkInfo(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch link info for page %s: %w", page.ID, err)
	}

	graph, err := e.Parser.Parse(html, fetchedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse links for page %s: %w", page.ID, err)
	}
	links.Enrich(ctx, e.Lookup, graph)

	if err := e.saveLinks(ctx, page.ID, graph); err != nil {
		return nil, fmt.Errorf("failed to save links for page %s: %w", page.ID, err)
	}
	return graph, nil
}

func (e *Exporter) saveLinks(ctx context.Context, pageID string, graph *model.LinkGraph) error {
	// Re-reporting a page replaces its edges wholesale.
	if _, err := e.Driver.ExecuteQuery(ctx, driver.DeletePageLinksQuery, map[string]interface{}{
		"page_id": pageID,
	}); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, l := range graph.Outgoing {
		if l.PageID == "" {
			// Without an ID the MERGE would collapse every such link
			// onto one shared empty-ID node.
			log.Printf("links: page %s: skipping outgoing link %q with no resolvable identity", pageID, l.Href)
			continue
		}
		params := map[string]interface{}{
			"page_id":      pageID,
			"target_id":    l.PageID,
			"target_title": l.Title,
			"target_space": l.Space,
			"direction":    string(l.Direction),
			"href":         l.Href,
			"created_at":   now,
		}
		if _, err := e.Driver.ExecuteQuery(ctx, driver.SaveOutgoingLinkQuery, params); err != nil {
			return err
		}
	}
	for _, l := range graph.Incoming {
		if l.PageID == "" {
			log.Printf("links: page %s: skipping incoming link %q with no resolvable identity", pageID, l.Href)
			continue
		}
		params := map[string]interface{}{
			"page_id":      pageID,
			"source_id":    l.PageID,
			"source_title": l.Title,
			"source_space": l.Space,
			"direction":    string(l.Direction),
			"href":         l.Href,
			"created_at":   now,
		}
		if _, err := e.Driver.ExecuteQuery(ctx, driver.SaveIncomingLinkQuery, params); err != nil {
			return err
		}
	}

	_, err := e.Driver.ExecuteQuery(ctx, driver.MarkPageLinkedQuery, map[string]interface{}{
		"page_id":    pageID,
		"updated_at": now,
	})
	return err
}

func (e *Exporter) convertMarkdown(ctx context.Context, page *model.Page) (string, error) {
	opts := markdown.Options{
		BaseURL:     e.BaseURL,
		Lookup:      e.Lookup,
		Attachments: e.Attachments,
	}
	if e.Expander != nil {
		opts.Expander = e.Expander
	}
	conv, err := markdown.NewConverter(page, opts)
	if err != nil {
		return "", fmt.Errorf("failed to prepare conversion for page %s: %w", page.ID, err)
	}
	md := conv.Markdown(ctx)

	if _, err := e.Driver.ExecuteQuery(ctx, driver.SetPageMarkdownQuery, map[string]interface{}{
		"page_id":    page.ID,
		"markdown":   md,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return "", fmt.Errorf("failed to save markdown for page %s: %w", page.ID, err)
	}
	return md, nil
}

// GetPageMarkdown reads back a previously converted page.
func (e *Exporter) GetPageMarkdown(ctx context.Context, pageID string) (string, error) {
	res, err := e.Driver.ExecuteQuery(ctx, driver.GetPageMarkdownQuery, map[string]interface{}{
		"page_id": pageID,
	})
	if err != nil {
		return "", err
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("page %s not found in store", pageID)
	}
	md, _ := res.Records[0].Get("markdown")
	s, _ := md.(string)
	return s, nil
}

// StoredLink is one edge read back from the store.
type StoredLink struct {
	Direction string `json:"direction"`
	Href      string `json:"href"`
	OtherID   string `json:"other_id"`
	Title     string `json:"title"`
}

// GetPageLinks reads back the edges a page last reported.
func (e *Exporter) GetPageLinks(ctx context.Context, pageID string) ([]StoredLink, error) {
	res, err := e.Driver.ExecuteQuery(ctx, driver.GetPageLinksQuery, map[string]interface{}{
		"page_id": pageID,
	})
	if err != nil {
		return nil, err
	}

	var out []StoredLink
	for _, rec := range res.Records {
		direction, _ := rec.Get("direction")
		href, _ := rec.Get("href")
		otherID, _ := rec.Get("other_id")
		title, _ := rec.Get("title")
		link := StoredLink{}
		link.Direction, _ = direction.(string)
		link.Href, _ = href.(string)
		link.OtherID, _ = otherID.(string)
		link.Title, _ = title.(string)
		out = append(out, link)
	}
	return out, nil
}

// ReferencedAttachments fetches a page and reports which of its
// attachments the page content actually uses; the rest are stale
// uploads a consumer can ignore when mirroring attachments.
func (e *Exporter) ReferencedAttachments(ctx context.Context, pageID string) ([]model.Attachment, error) {
	page, err := e.Cache.Get(ctx, pageID, func(ctx context.Context) (*model.Page, error) {
		return e.Pages.GetPage(ctx, pageID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %s: %w", pageID, err)
	}
	return drawio.ReferencedAttachments(page), nil
}

// ClusterPages groups the given pages into clusters of related pages
// using the link edges recorded among them.
func (e *Exporter) ClusterPages(ctx context.Context, pageIDs []string, detector cluster.Detector) ([][]cluster.PageRef, error) {
	if detector == nil {
		detector = cluster.NewLabelPropagation()
	}

	pagesRes, err := e.Driver.ExecuteQuery(ctx, driver.GetPagesByIDQuery, map[string]interface{}{
		"page_ids": pageIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load pages for clustering: %w", err)
	}

	var pages []cluster.PageRef
	for _, rec := range pagesRes.Records {
		id, _ := rec.Get("page_id")
		title, _ := rec.Get("title")
		ref := cluster.PageRef{}
		ref.ID, _ = id.(string)
		ref.Title, _ = title.(string)
		pages = append(pages, ref)
	}

	edgesRes, err := e.Driver.ExecuteQuery(ctx, driver.GetLinksAmongQuery, map[string]interface{}{
		"page_ids": pageIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load edges for clustering: %w", err)
	}

	var edges []cluster.Edge
	for _, rec := range edgesRes.Records {
		source, _ := rec.Get("source_id")
		target, _ := rec.Get("target_id")
		edge := cluster.Edge{}
		edge.Source, _ = source.(string)
		edge.Target, _ = target.(string)
		edges = append(edges, edge)
	}

	return detector.Detect(pages, edges)
}

// BatchStats summarizes one ProcessBatch run.
type BatchStats struct {
	RunID     string            `json:"run_id"`
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Duration  time.Duration     `json:"duration"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// ProcessBatch runs the pipeline over many pages with a bounded worker
// pool. Each page gets its own timeout; a failed page is counted and the
// batch keeps going.
func (e *Exporter) ProcessBatch(ctx context.Context, pageIDs []string, workers int, pageTimeout time.Duration) *BatchStats {
	if workers < 1 {
		workers = 1
	}

	stats := &BatchStats{
		RunID:  uuid.New().String(),
		Errors: make(map[string]string),
	}
	start := time.Now()

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				pageCtx := ctx
				cancel := func() {}
				if pageTimeout > 0 {
					pageCtx, cancel = context.WithTimeout(ctx, pageTimeout)
				}
				_, err := e.ProcessPage(pageCtx, id)
				cancel()

				mu.Lock()
				if err != nil {
					stats.Failed++
					stats.Errors[id] = err.Error()
					log.Printf("batch %s: page %s failed: %v", stats.RunID, id, err)
				} else {
					stats.Processed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range pageIDs {
		select {
		case <-ctx.Done():
			// Stop feeding; workers drain and exit.
		case jobs <- id:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	stats.Duration = time.Since(start)
	return stats
}
