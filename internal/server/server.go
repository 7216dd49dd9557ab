package server

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smtools/confgraph/internal/config"
	"github.com/smtools/confgraph/internal/confluence"
	"github.com/smtools/confgraph/internal/core"
	"github.com/smtools/confgraph/internal/core/cluster"
	"github.com/smtools/confgraph/internal/driver"
)

type Server struct {
	Exporter    *core.Exporter
	Workers     int
	PageTimeout time.Duration
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Falling back to defaults and environment", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	d, err := driver.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password)
	if err != nil {
		log.Fatalf("Failed to connect to graph store: %v", err)
	}

	client := confluence.NewClient(confluence.ClientConfig{
		BaseURL:   cfg.Confluence.BaseURL,
		Token:     cfg.Confluence.Token,
		Timeout:   time.Duration(cfg.Confluence.TimeoutSeconds) * time.Second,
		VerifySSL: cfg.Confluence.VerifySSL,
		RateLimit: cfg.Confluence.RateLimit,
	})

	exporter := core.NewExporter(d, client, core.ExporterConfig{
		BaseURL:        cfg.Confluence.BaseURL,
		CacheSize:      cfg.Cache.Size,
		IncludeTimeout: time.Duration(cfg.Include.TimeoutSeconds) * time.Second,
		VerifySSL:      cfg.Confluence.VerifySSL,
	})

	return &Server{
		Exporter:    exporter,
		Workers:     cfg.Concurrency.Workers,
		PageTimeout: time.Duration(cfg.Concurrency.PageTimeoutSeconds) * time.Second,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.POST("/pages/:id/process", s.ProcessPage)
	r.POST("/batch", s.ProcessBatch)
	r.GET("/pages/:id/markdown", s.GetMarkdown)
	r.GET("/pages/:id/links", s.GetLinks)
	r.GET("/pages/:id/attachments", s.GetAttachments)
	r.POST("/clusters", s.Clusters)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ProcessPage(c *gin.Context) {
	result, err := s.Exporter.ProcessPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("Failed to process page %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process page"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type BatchRequest struct {
	PageIDs []string `json:"page_ids"`
}

func (s *Server) ProcessBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	stats := s.Exporter.ProcessBatch(c.Request.Context(), req.PageIDs, s.Workers, s.PageTimeout)
	c.JSON(http.StatusOK, stats)
}

// GetAttachments lists the attachments the page content actually
// references, filtering out stale uploads.
func (s *Server) GetAttachments(c *gin.Context) {
	atts, err := s.Exporter.ReferencedAttachments(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("Failed to list attachments for page %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list attachments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"page_id": c.Param("id"), "attachments": atts})
}

type ClustersRequest struct {
	PageIDs   []string `json:"page_ids"`
	Algorithm string   `json:"algorithm"`
}

func (s *Server) Clusters(c *gin.Context) {
	var req ClustersRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var detector cluster.Detector
	switch req.Algorithm {
	case "", "label_propagation":
		detector = cluster.NewLabelPropagation()
	case "connected_components":
		detector = &cluster.ConnectedComponents{}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown algorithm"})
		return
	}

	clusters, err := s.Exporter.ClusterPages(c.Request.Context(), req.PageIDs, detector)
	if err != nil {
		log.Printf("Failed to cluster pages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cluster pages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

func (s *Server) GetMarkdown(c *gin.Context) {
	md, err := s.Exporter.GetPageMarkdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"page_id": c.Param("id"), "markdown": md})
}

func (s *Server) GetLinks(c *gin.Context) {
	stored, err := s.Exporter.GetPageLinks(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Printf("Failed to read links for page %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read links"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"page_id": c.Param("id"), "links": stored})
}
