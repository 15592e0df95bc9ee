package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"NewsCast/internal/domain"
)

// FormatBand assigns Formats to every score at or above MinScore.
type FormatBand struct {
	MinScore int
	Formats  []domain.ContentType
}

// FormatPolicy maps a judge score to content formats. Bands are kept highest first.
type FormatPolicy []FormatBand

// NewFormatPolicy orders bands by descending MinScore.
func NewFormatPolicy(bands []FormatBand) FormatPolicy {
	policy := append(FormatPolicy(nil), bands...)
	sort.SliceStable(policy, func(i, j int) bool { return policy[i].MinScore > policy[j].MinScore })
	return policy
}

// DefaultFormatPolicy is the built-in score table.
func DefaultFormatPolicy() FormatPolicy {
	return NewFormatPolicy([]FormatBand{
		{MinScore: 8, Formats: []domain.ContentType{domain.ContentHeadline, domain.ContentCarousel, domain.ContentVideo, domain.ContentPodcast}},
		{MinScore: 6, Formats: []domain.ContentType{domain.ContentCarousel, domain.ContentHeadline}},
		{MinScore: 4, Formats: []domain.ContentType{domain.ContentHeadline}},
	})
}

// Formats returns the formats of the first band score reaches, or none.
func (p FormatPolicy) Formats(score int) domain.FormatList {
	for _, band := range p {
		if score >= band.MinScore {
			return append(domain.FormatList{}, band.Formats...)
		}
	}
	return domain.FormatList{}
}

// RunJudging scores processed articles and assigns their formats. Formats
// named by the judge win over the policy table.
func (p *Pipeline) RunJudging(ctx context.Context, limit int) (StageResult, error) {
	start := time.Now()
	var res StageResult

	articles, err := p.articles.ListUnscoredArticles(ctx, limit)
	if err != nil {
		err = fmt.Errorf("list unscored articles: %w", err)
		p.finish(ctx, "judge", start, res, err)
		return res, err
	}

	for _, article := range articles {
		if strings.TrimSpace(article.Summary) == "" {
			res.Skipped++
			continue
		}

		verdict, err := p.judge.Judge(ctx, article.Summary)
		if err != nil {
			level := p.logger.WarnContext
			if errors.Is(err, domain.ErrMalformedResponse) {
				level = p.logger.ErrorContext
			}
			level(ctx, "judge article", "article_id", article.ID, "error", err)
			res.Failed++
			continue
		}

		formats := domain.FormatList(verdict.Formats)
		if len(formats) == 0 {
			formats = p.formats.Formats(verdict.Score)
		}

		if err := p.articles.MarkArticleScored(ctx, article.ID, verdict.Score, formats); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				res.Skipped++
				continue
			}
			p.logger.ErrorContext(ctx, "store verdict", "article_id", article.ID, "error", err)
			res.Failed++
			continue
		}
		p.logger.DebugContext(ctx, "article scored", "article_id", article.ID, "score", verdict.Score, "formats", formats)
		res.Processed++
	}

	p.finish(ctx, "judge", start, res, nil)
	return res, nil
}
