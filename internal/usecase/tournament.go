package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"NewsCast/internal/domain"
)

// RunTournament picks one winner per open (article, format) group. An empty
// contentType covers every generated format.
func (p *Pipeline) RunTournament(ctx context.Context, contentType domain.ContentType, limit int) (StageResult, error) {
	start := time.Now()
	var res StageResult

	groups, err := p.posts.ListOpenGroups(ctx, contentType, limit)
	if err != nil {
		err = fmt.Errorf("list open groups: %w", err)
		p.finish(ctx, "select", start, res, err)
		return res, err
	}

	for _, group := range groups {
		posts, err := p.posts.ListGroupCandidates(ctx, group)
		if err != nil {
			p.logger.ErrorContext(ctx, "load candidates", "article_id", group.ArticleID, "content_type", group.ContentType, "error", err)
			res.Failed++
			continue
		}
		if len(posts) == 0 {
			res.Skipped++
			continue
		}

		candidates := toCandidates(posts)
		winner, err := p.pickWinner(ctx, group.ContentType, candidates)
		if err != nil {
			p.logger.WarnContext(ctx, "selection failed, group stays open", "article_id", group.ArticleID, "content_type", group.ContentType, "error", err)
			res.Failed++
			continue
		}

		claimed, err := p.posts.MarkSelected(ctx, winner.PostID, group)
		if err != nil {
			p.logger.ErrorContext(ctx, "mark winner", "post_id", winner.PostID, "error", err)
			res.Failed++
			continue
		}
		if !claimed {
			p.logger.InfoContext(ctx, "group already has a winner", "article_id", group.ArticleID, "content_type", group.ContentType)
			res.Skipped++
			continue
		}

		for _, c := range candidates {
			won := c.PostID == winner.PostID
			if err := p.performance.RecordOutcome(ctx, c.Model, group.ContentType, won); err != nil {
				p.logger.WarnContext(ctx, "record outcome", "model", c.Model, "content_type", group.ContentType, "error", err)
			}
		}
		p.logger.DebugContext(ctx, "winner selected", "article_id", group.ArticleID, "content_type", group.ContentType,
			"post_id", winner.PostID, "model", winner.Model, "variant", winner.VariantID)
		res.Processed++
	}

	p.finish(ctx, "select", start, res, nil)
	return res, nil
}

// pickWinner asks the selector and resolves its answer. Unusable answers and a
// missing selector fall back to the first candidate; transport errors are returned.
func (p *Pipeline) pickWinner(ctx context.Context, ct domain.ContentType, candidates []domain.Candidate) (domain.Candidate, error) {
	if p.selector == nil {
		return candidates[0], nil
	}

	ref, err := p.selector.PickWinner(ctx, ct, candidates)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) ||
			errors.Is(err, domain.ErrEmptyResponse) ||
			errors.Is(err, domain.ErrMisconfigured) {
			p.logger.WarnContext(ctx, "unusable selection, using first candidate", "content_type", ct, "error", err)
			return candidates[0], nil
		}
		return domain.Candidate{}, err
	}

	if winner, ok := ResolveWinner(candidates, ref); ok {
		return winner, nil
	}
	p.logger.WarnContext(ctx, "selection matched no candidate, using first", "content_type", ct,
		"variant", ref.VariantID, "model", ref.Model)
	return candidates[0], nil
}

// ResolveWinner matches ref against candidates: by variant id when both the
// candidates and ref carry one, otherwise by model name. An unknown variant id
// is no match, even if ref also names a model.
func ResolveWinner(candidates []domain.Candidate, ref domain.WinnerRef) (domain.Candidate, bool) {
	hasVariants := false
	for _, c := range candidates {
		if c.VariantID != 0 {
			hasVariants = true
			break
		}
	}

	if hasVariants && ref.VariantID != 0 {
		for _, c := range candidates {
			if c.VariantID == ref.VariantID {
				return c, true
			}
		}
		return domain.Candidate{}, false
	}
	if model := strings.TrimSpace(ref.Model); model != "" {
		for _, c := range candidates {
			if strings.EqualFold(c.Model, model) {
				return c, true
			}
		}
	}
	return domain.Candidate{}, false
}

func toCandidates(posts []domain.Post) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(posts))
	for _, post := range posts {
		c := domain.Candidate{PostID: post.ID, Model: post.GeneratingModel}
		if payload, err := post.Payload(); err == nil {
			c.VariantID = payload.VariantID()
		}
		if json.Valid([]byte(post.Content)) {
			c.Content = json.RawMessage(post.Content)
		} else {
			c.Content, _ = json.Marshal(post.Content)
		}
		candidates = append(candidates, c)
	}
	return candidates
}
