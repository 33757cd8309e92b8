// Command diagnose_discovery runs the real discovery engine and feed parser
// against a list of page URLs and reports which strategy (if any) finds a
// feed for each. Useful when deciding whether a site needs a rules-overlay
// entry.
//
// Usage:
//
//	go run scripts/diagnose_discovery.go https://example.com https://blog.example.org
//	go run scripts/diagnose_discovery.go -f urls.txt
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"pagefeed/internal/domain/entity"
	"pagefeed/internal/infra/discovery"
	"pagefeed/internal/infra/feedparser"
	"pagefeed/internal/infra/fetcher"
	"pagefeed/internal/pkg/urlutil"
)

// DiscoveryDiagnostic is the per-URL result.
type DiscoveryDiagnostic struct {
	PageURL      string `json:"page_url"`
	Status       string `json:"status"` // "FOUND", "NEGATIVE", "TRANSIENT", "INVALID"
	Strategy     string `json:"strategy,omitempty"`
	FeedURL      string `json:"feed_url,omitempty"`
	ItemCount    int    `json:"item_count"`
	FeedTitle    string `json:"feed_title,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

func main() {
	urlsFile := flag.String("f", "", "file with one page URL per line")
	extra := flag.Bool("extra", false, "enable sitemap/robots/content-mining strategies")
	timeout := flag.Duration("timeout", 30*time.Second, "per-URL diagnosis timeout")
	flag.Parse()

	urls := collectURLs(*urlsFile, flag.Args())
	if len(urls) == 0 {
		log.Fatal("no URLs given: pass them as arguments or with -f file")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	f := fetcher.New(fetcher.DefaultConfig(), logger)
	engine := discovery.New(f, nil, *extra, logger)
	parser := feedparser.New()

	log.Printf("Diagnosing %d page URLs...\n", len(urls))

	diagnostics := make([]DiscoveryDiagnostic, 0, len(urls))
	for i, pageURL := range urls {
		log.Printf("[%d/%d] %s", i+1, len(urls), pageURL)
		diag := diagnose(f, engine, parser, pageURL, *timeout)
		diagnostics = append(diagnostics, diag)

		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)
	}

	generateReport(diagnostics)
	generateJSONReport(diagnostics)
}

// collectURLs merges the -f file (if any) with positional arguments.
func collectURLs(path string, args []string) []string {
	urls := append([]string{}, args...)
	if path == "" {
		return urls
	}

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open URL file: %v", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("Failed to close URL file: %v", err)
		}
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read URL file: %v", err)
	}
	return urls
}

func diagnose(f *fetcher.Fetcher, engine *discovery.Engine, parser *feedparser.Parser, pageURL string, timeout time.Duration) DiscoveryDiagnostic {
	diag := DiscoveryDiagnostic{PageURL: pageURL}

	normURL, err := urlutil.Normalize(pageURL)
	if err != nil {
		diag.Status = "INVALID"
		diag.Reason = err.Error()
		return diag
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	outcome := engine.Discover(ctx, normURL)
	diag.ResponseTime = time.Since(start).Milliseconds()

	switch outcome.State {
	case entity.OutcomeFound:
		diag.Status = "FOUND"
		diag.Strategy = outcome.Strategy.String()
		diag.FeedURL = outcome.FeedURL
	case entity.OutcomeTransient:
		diag.Status = "TRANSIENT"
		diag.Reason = outcome.Reason
		return diag
	default:
		diag.Status = "NEGATIVE"
		diag.Reason = outcome.Reason
		return diag
	}

	// Parse the found feed so the report shows what a pass-through would serve.
	body, err := f.GetBody(ctx, outcome.FeedURL, fetcher.Options{})
	if err != nil {
		diag.Reason = fmt.Sprintf("feed fetch failed: %v", err)
		return diag
	}
	items, meta, err := parser.Parse(outcome.FeedURL, body.Data, time.Now())
	if err != nil {
		diag.Reason = fmt.Sprintf("feed parse failed: %v", err)
		return diag
	}
	diag.ItemCount = len(items)
	diag.FeedTitle = meta.Title
	return diag
}

// writef is a helper to write to file and handle errors
func writef(f *os.File, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(f, format, args...)
	return err
}

func generateReport(diagnostics []DiscoveryDiagnostic) {
	f, err := os.Create("discovery_diagnostic_report.txt")
	if err != nil {
		log.Printf("Failed to create report file: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close report file: %v", err)
		}
	}()

	_ = writef(f, "===============================================\n")
	_ = writef(f, "Feed Discovery Diagnostic Report\n")
	_ = writef(f, "Generated: %s\n", time.Now().Format(time.RFC3339))
	_ = writef(f, "Total Pages: %d\n", len(diagnostics))
	_ = writef(f, "===============================================\n\n")

	statusCount := make(map[string]int)
	strategyCount := make(map[string]int)
	for _, d := range diagnostics {
		statusCount[d.Status]++
		if d.Strategy != "" {
			strategyCount[d.Strategy]++
		}
	}

	found := statusCount["FOUND"]
	_ = writef(f, "SUMMARY:\n")
	_ = writef(f, "  ✅ Feed found: %d (%.1f%%)\n", found, float64(found)/float64(len(diagnostics))*100)
	_ = writef(f, "  ❌ No feed: %d\n", statusCount["NEGATIVE"])
	_ = writef(f, "  ⏳ Transient: %d\n", statusCount["TRANSIENT"])
	_ = writef(f, "  🚫 Invalid URL: %d\n", statusCount["INVALID"])
	_ = writef(f, "\nSTRATEGY BREAKDOWN:\n")
	for strategy, count := range strategyCount {
		_ = writef(f, "  %s: %d\n", strategy, count)
	}
	_ = writef(f, "\n")

	_ = writef(f, "DETAILED RESULTS:\n")
	_ = writef(f, "===============================================\n\n")

	_ = writef(f, "✅ PAGES WITH FEEDS (%d):\n", found)
	_ = writef(f, "-------------------------------------------\n")
	for _, d := range diagnostics {
		if d.Status == "FOUND" {
			_ = writef(f, "Page: %s\n", d.PageURL)
			_ = writef(f, "  Feed: %s\n", d.FeedURL)
			_ = writef(f, "  Strategy: %s | Items: %d | Title: %s\n", d.Strategy, d.ItemCount, d.FeedTitle)
			_ = writef(f, "  Discovery time: %dms\n", d.ResponseTime)
			if d.Reason != "" {
				_ = writef(f, "  ⚠️  %s\n", d.Reason)
			}
			_ = writef(f, "\n")
		}
	}

	_ = writef(f, "\n❌ PAGES WITHOUT FEEDS (%d):\n", len(diagnostics)-found)
	_ = writef(f, "-------------------------------------------\n")
	for _, d := range diagnostics {
		if d.Status != "FOUND" {
			_ = writef(f, "Page: %s\n", d.PageURL)
			_ = writef(f, "  Status: %s\n", d.Status)
			_ = writef(f, "  Reason: %s\n", d.Reason)
			_ = writef(f, "  Discovery time: %dms\n", d.ResponseTime)
			_ = writef(f, "\n")
		}
	}

	log.Println("✅ Text report generated: discovery_diagnostic_report.txt")
}

func generateJSONReport(diagnostics []DiscoveryDiagnostic) {
	f, err := os.Create("discovery_diagnostic_report.json")
	if err != nil {
		log.Printf("Failed to create JSON report: %v", err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close JSON report file: %v", err)
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(diagnostics); err != nil {
		log.Printf("Failed to write JSON report: %v", err)
		return
	}

	log.Println("✅ JSON report generated: discovery_diagnostic_report.json")
}
