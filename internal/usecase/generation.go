package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsCast/internal/domain"
)

// RunGeneration produces candidate posts for scored articles that have none.
// Every configured model is called once per variant; each requested format
// present in a reply becomes one post. A failing call is counted and the
// remaining models still run.
func (p *Pipeline) RunGeneration(ctx context.Context, limit int) (StageResult, error) {
	start := time.Now()
	var res StageResult

	articles, err := p.articles.ListArticlesForGeneration(ctx, limit)
	if err != nil {
		err = fmt.Errorf("list articles for generation: %w", err)
		p.finish(ctx, "generate", start, res, err)
		return res, err
	}

	variants := p.generation.Variants
	if variants < 1 {
		variants = 1
	}
	tagVariants := variants > 1 || len(p.generation.Models) > 1

	for _, article := range articles {
		if article.Content == "" || len(article.FormatAssignments) == 0 {
			res.Skipped++
			continue
		}
		has, err := p.posts.HasPosts(ctx, article.ID)
		if err != nil {
			p.logger.ErrorContext(ctx, "check posts", "article_id", article.ID, "error", err)
			res.Failed++
			continue
		}
		if has {
			res.Skipped++
			continue
		}

		created := 0
		variantID := 0
		for _, model := range p.generation.Models {
			for v := 1; v <= variants; v++ {
				variantID++
				n, err := p.generateVariant(ctx, article, model, v, variantID, tagVariants)
				if err != nil {
					p.logger.WarnContext(ctx, "generate variant", "article_id", article.ID, "model", model, "variant", v, "error", err)
					res.Failed++
				}
				created += n
			}
		}

		res.Created += created
		if created > 0 {
			res.Processed++
		} else {
			res.Skipped++
		}
	}

	p.finish(ctx, "generate", start, res, nil)
	return res, nil
}

// generateVariant runs one model call and stores its usable formats.
func (p *Pipeline) generateVariant(ctx context.Context, article domain.Article, model string, variant, variantID int, tag bool) (int, error) {
	formats := []domain.ContentType(article.FormatAssignments)
	raw, err := p.generator.Generate(ctx, model, article.Content, formats, variant)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, ct := range formats {
		value, ok := raw[ct]
		if !ok {
			continue
		}
		payload, err := domain.DecodePayload(ct, value)
		if err != nil || payload.Empty() {
			p.logger.DebugContext(ctx, "unusable format", "article_id", article.ID, "model", model, "format", ct, "error", err)
			continue
		}
		if tag {
			payload = payload.WithVariant(variantID)
		}

		post, err := domain.NewPost(&article.ID, p.generation.PlatformFor(ct), model, payload)
		if err != nil {
			return created, err
		}
		if _, err := p.posts.InsertPost(ctx, post); err != nil {
			return created, fmt.Errorf("store %s post: %w", ct, err)
		}
		created++
	}
	return created, nil
}
