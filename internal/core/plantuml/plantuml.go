package plantuml

import (
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var includeURLPattern = regexp.MustCompile(`!include\s+(https?://\S+)`)

const (
	blockStart = "@startuml"
	blockEnd   = "@enduml"
)

// Expander resolves !include <url> directives inside PlantUML source by
// fetching the referenced document. A failed fetch keeps the original
// line, so expansion never makes the source worse than it started.
type Expander struct {
	client *http.Client
}

func NewExpander(timeout time.Duration, verifySSL bool) *Expander {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Expander{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// ExpandIncludes replaces each `!include <url>` or `!include <url>!<block>`
// line with the fetched content (or the extracted block). This is a single
// pass: includes inside fetched content are not expanded again.
func (e *Expander) ExpandIncludes(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		match := includeURLPattern.FindStringSubmatch(line)
		if match == nil {
			lines = append(lines, line)
			continue
		}

		url := strings.TrimRight(match[1], " \t")
		fetchURL := url
		blockRef := ""
		if i := strings.Index(url, "!"); i >= 0 {
			fetchURL = url[:i]
			blockRef = strings.TrimSpace(url[i+1:])
		}

		text, err := e.fetch(fetchURL)
		if err != nil {
			log.Printf("plantuml: !include %s failed: %v", url, err)
			lines = append(lines, line)
			continue
		}

		text = strings.TrimSpace(text)
		if blockRef != "" && text != "" {
			text = extractBlock(text, blockRef)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func (e *Expander) fetch(url string) (string, error) {
	resp, err := e.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extractBlock selects one @startuml..@enduml region from a fetched
// PlantUML file, addressed either by zero-based index (!0, !1) or by an
// id parameter in the @startuml line (!blockname, case-insensitive).
// Out-of-range indices and unknown ids fall back to the first region.
func extractBlock(content, blockRef string) string {
	var blocks []string
	pos := 0
	for {
		start := strings.Index(content[pos:], blockStart)
		if start == -1 {
			break
		}
		start += pos
		end := strings.Index(content[start:], blockEnd)
		if end == -1 {
			break
		}
		end += start + len(blockEnd)
		blocks = append(blocks, strings.TrimSpace(content[start:end]))
		pos = end
	}

	if len(blocks) == 0 {
		return strings.TrimSpace(content)
	}

	if idx, ok := parseIndex(blockRef); ok {
		if idx >= 0 && idx < len(blocks) {
			return blocks[idx]
		}
		return blocks[0]
	}

	idPattern := regexp.MustCompile(`(?i)@startuml\s*\(\s*id\s*=\s*` + regexp.QuoteMeta(blockRef) + `\s*\)`)
	for _, b := range blocks {
		if idPattern.MatchString(b) {
			return b
		}
	}
	return blocks[0]
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
