// Package source discovers candidate postings in the SimplifyJobs internship
// README on GitHub. The raw README is fetched over HTTP and its embedded HTML
// job tables are parsed row by row.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"job-skill-pipeline/internal/models"
)

const httpTimeout = 30 * time.Second

// continuationMark appears in the company cell when a row belongs to the same
// company as the previous row.
const continuationMark = "↳"

// badgeRE strips the emoji badges the README appends to role names.
var badgeRE = regexp.MustCompile(`[🎓🔥🛂🇺🇸🔒]+`)

// GitHubSource lists candidates from a raw README URL.
type GitHubSource struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// New constructs a GitHubSource with a shared HTTP client.
func New(url string, log *zap.Logger) *GitHubSource {
	return &GitHubSource{
		url:    url,
		client: &http.Client{Timeout: httpTimeout},
		log:    log,
	}
}

// ListCandidates fetches the README and extracts job postings from its HTML
// tables. A limit of 0 means no limit.
func (s *GitHubSource) ListCandidates(ctx context.Context, limit int) ([]models.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing source returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing body: %w", err)
	}
	s.log.Debug("fetched listing", zap.Int("bytes", len(body)))

	candidates, err := parseListing(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	s.log.Info("extracted candidates from listing", zap.Int("count", len(candidates)))

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// parseListing walks every table row in the document. Rows with fewer than
// four cells, rows whose apply link points back at the aggregator, and rows
// without an apply link are skipped.
func parseListing(r io.Reader) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var (
		candidates     []models.Candidate
		currentCompany string
	)

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		company := strings.TrimSpace(cells.Eq(0).Text())
		if company == continuationMark {
			company = currentCompany
			if company == "" {
				company = "Unknown"
			}
		} else {
			currentCompany = company
		}

		role := strings.TrimSpace(badgeRE.ReplaceAllString(cells.Eq(1).Text(), ""))
		location := strings.TrimSpace(cells.Eq(2).Text())

		applyURL, ok := cells.Eq(3).Find("a").First().Attr("href")
		if !ok {
			return
		}
		applyURL = strings.TrimSpace(applyURL)

		// Aggregator and repo-internal links are not job applications.
		if strings.Contains(applyURL, "simplify.jobs") || strings.Contains(applyURL, "github.com") {
			return
		}

		candidates = append(candidates, models.Candidate{
			Company:  company,
			Role:     role,
			Location: location,
			URL:      applyURL,
		})
	})

	return candidates, nil
}
