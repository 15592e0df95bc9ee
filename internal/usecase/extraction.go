package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunExtraction distills raw HTML of unprocessed articles. Only a non-empty
// summary advances an article to processed.
func (p *Pipeline) RunExtraction(ctx context.Context, limit int) (StageResult, error) {
	start := time.Now()
	var res StageResult

	articles, err := p.articles.ListUnprocessedArticles(ctx, limit)
	if err != nil {
		err = fmt.Errorf("list unprocessed articles: %w", err)
		p.finish(ctx, "extract", start, res, err)
		return res, err
	}

	for _, article := range articles {
		if strings.TrimSpace(article.RawHTML) == "" {
			res.Skipped++
			continue
		}

		extraction, err := p.distiller.Distill(ctx, article.SourceURL, article.RawHTML)
		if err != nil {
			p.logger.WarnContext(ctx, "distill article", "article_id", article.ID, "error", err)
			res.Failed++
			continue
		}
		if extraction.Error != "" {
			p.logger.WarnContext(ctx, "distilled locally", "article_id", article.ID, "reason", extraction.Error)
		}
		if strings.TrimSpace(extraction.Summary) == "" {
			p.logger.WarnContext(ctx, "empty summary", "article_id", article.ID)
			res.Skipped++
			continue
		}

		if err := p.articles.MarkArticleExtracted(ctx, article.ID, extraction); err != nil {
			p.logger.ErrorContext(ctx, "store extraction", "article_id", article.ID, "error", err)
			res.Failed++
			continue
		}
		res.Processed++
	}

	p.finish(ctx, "extract", start, res, nil)
	return res, nil
}
