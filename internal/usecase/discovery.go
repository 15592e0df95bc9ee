package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NewsCast/internal/domain"
	"NewsCast/internal/scanner"
)

// ScrapeCategories fetches every configured listing page. A page that cannot
// be fetched is still recorded, with empty HTML, so the link extractor closes it.
func (p *Pipeline) ScrapeCategories(ctx context.Context) (StageResult, error) {
	start := time.Now()
	var res StageResult

	for _, src := range p.sources {
		html, fetchErr := p.fetcher.Get(ctx, src.URL)
		if fetchErr != nil {
			p.logger.WarnContext(ctx, "category fetch failed", "url", src.URL, "error", fetchErr)
			html = ""
		}

		_, err := p.pages.UpsertCategoryPage(ctx, domain.CategoryPage{
			SourceURL:     src.URL,
			SourceWebsite: src.Site,
			RawHTML:       html,
		})
		switch {
		case err != nil:
			p.logger.ErrorContext(ctx, "store category page", "url", src.URL, "error", err)
			res.Failed++
		case fetchErr != nil:
			res.Failed++
		default:
			res.Processed++
		}
	}

	p.finish(ctx, "scrape", start, res, nil)
	return res, nil
}

// ExtractLinks turns unprocessed listing pages into article URLs. Created
// reports how many new URLs were stored.
func (p *Pipeline) ExtractLinks(ctx context.Context, limit int) (StageResult, error) {
	start := time.Now()
	var res StageResult

	pages, err := p.pages.ListUnprocessedPages(ctx, limit)
	if err != nil {
		err = fmt.Errorf("list unprocessed pages: %w", err)
		p.finish(ctx, "links", start, res, err)
		return res, err
	}

	for _, page := range pages {
		rule, ok := p.rules.Resolve(page.SourceWebsite)
		if !ok || strings.TrimSpace(page.RawHTML) == "" {
			p.logger.DebugContext(ctx, "closing page without links", "page_id", page.ID, "site", page.SourceWebsite, "known_site", ok)
			if p.closePage(ctx, page.ID) {
				res.Skipped++
			} else {
				res.Failed++
			}
			continue
		}

		links, err := scanner.ExtractLinks(rule, page.RawHTML)
		if err != nil {
			// The HTML only changes on rescrape, which reopens the page.
			p.logger.WarnContext(ctx, "extract links", "page_id", page.ID, "error", err)
			p.closePage(ctx, page.ID)
			res.Failed++
			continue
		}

		urls := make([]domain.ArticleURL, 0, len(links))
		for _, link := range links {
			urls = append(urls, domain.ArticleURL{
				ArticleURL:     link,
				SourceWebsite:  page.SourceWebsite,
				CategoryPageID: page.ID,
			})
		}
		created, err := p.urls.UpsertArticleURLs(ctx, urls)
		if err != nil {
			p.logger.ErrorContext(ctx, "store article urls", "page_id", page.ID, "error", err)
			res.Failed++
			continue
		}
		if !p.closePage(ctx, page.ID) {
			res.Failed++
			continue
		}

		res.Processed++
		res.Created += created
		p.logger.DebugContext(ctx, "page links", "page_id", page.ID, "found", len(links), "new", created)
	}

	p.finish(ctx, "links", start, res, nil)
	return res, nil
}

func (p *Pipeline) closePage(ctx context.Context, id string) bool {
	if err := p.pages.MarkPageProcessed(ctx, id); err != nil {
		p.logger.ErrorContext(ctx, "mark page processed", "page_id", id, "error", err)
		return false
	}
	return true
}

// FetchArticles downloads unscraped article URLs. Fetch failures leave the
// URL unscraped so the next poll retries it.
func (p *Pipeline) FetchArticles(ctx context.Context, limit int) (StageResult, error) {
	start := time.Now()
	var res StageResult

	urls, err := p.urls.ListUnscrapedURLs(ctx, limit)
	if err != nil {
		err = fmt.Errorf("list unscraped urls: %w", err)
		p.finish(ctx, "articles", start, res, err)
		return res, err
	}

	for _, u := range urls {
		html, err := p.fetcher.Get(ctx, u.ArticleURL)
		if err != nil {
			p.logger.WarnContext(ctx, "article fetch failed", "url", u.ArticleURL, "error", err)
			res.Failed++
			continue
		}

		article := domain.Article{
			SourceURL:     u.ArticleURL,
			SourceWebsite: u.SourceWebsite,
			RawHTML:       html,
		}
		if project, ok := p.siteProjects[u.SourceWebsite]; ok {
			article.ProjectID = &project
		}

		if _, err := p.articles.UpsertRawArticle(ctx, article); err != nil {
			p.logger.ErrorContext(ctx, "store article", "url", u.ArticleURL, "error", err)
			res.Failed++
			continue
		}
		if err := p.urls.MarkURLScraped(ctx, u.ID); err != nil {
			p.logger.ErrorContext(ctx, "mark url scraped", "url", u.ArticleURL, "error", err)
			res.Failed++
			continue
		}
		res.Processed++
	}

	p.finish(ctx, "articles", start, res, nil)
	return res, nil
}
