package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

var languageLabels = map[string]string{
	"en": "English",
	"es": "Spanish",
	"sk": "Slovak",
}

// LanguageLabel turns a language code into the name used in prompts. Codes
// outside the built-in table are named via CLDR; unparsable values pass through.
func LanguageLabel(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return languageLabels["en"]
	}
	if label, ok := languageLabels[strings.ToLower(code)]; ok {
		return label
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// RoundupRequest scopes one roundup. Both fields are optional.
type RoundupRequest struct {
	ProjectID string
	Language  string
}

// AssembleRoundup scripts one audio roundup from the best recent stories and
// stores it as an audio_roundup post. No stories means no post. The project
// picks the language and, with ScopeToProject, narrows the stories.
func (p *Pipeline) AssembleRoundup(ctx context.Context, req RoundupRequest) (StageResult, error) {
	start := time.Now()
	var res StageResult

	lang := req.Language
	if lang == "" && req.ProjectID != "" {
		project, err := p.projects.GetProject(ctx, req.ProjectID)
		switch {
		case err == nil:
			lang = project.Language
		case errors.Is(err, domain.ErrNotFound):
			p.logger.WarnContext(ctx, "roundup project not found", "project_id", req.ProjectID)
		default:
			err = fmt.Errorf("load project %s: %w", req.ProjectID, err)
			p.finish(ctx, "roundup", start, res, err)
			return res, err
		}
	}
	if lang == "" {
		lang = p.roundup.DefaultLanguage
	}

	filter := ports.RoundupFilter{
		Since:    p.now().Add(-p.roundup.Window),
		MinScore: p.roundup.MinScore,
		Limit:    p.roundup.Size,
	}
	if p.roundup.ScopeToProject {
		filter.ProjectID = req.ProjectID
	}
	articles, err := p.articles.ListRoundupCandidates(ctx, filter)
	if err != nil {
		err = fmt.Errorf("list roundup stories: %w", err)
		p.finish(ctx, "roundup", start, res, err)
		return res, err
	}
	if len(articles) == 0 {
		p.finish(ctx, "roundup", start, res, nil)
		return res, nil
	}

	stories := make([]domain.Story, 0, len(articles))
	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		stories = append(stories, domain.Story{Title: a.Title, Summary: a.Summary})
		ids = append(ids, a.ID)
	}

	dialogue, err := p.writer.WriteRoundup(ctx, stories, LanguageLabel(lang))
	if err != nil {
		p.logger.WarnContext(ctx, "write roundup", "project_id", req.ProjectID, "error", err)
		res.Failed++
		p.finish(ctx, "roundup", start, res, nil)
		return res, nil
	}

	post, err := domain.NewPost(nil, p.roundup.Platform, p.writer.Model(), domain.Payload{
		ContentType: domain.ContentAudioRoundup,
		Dialogue:    &dialogue,
	})
	if err != nil {
		return res, err
	}
	postID, err := p.posts.InsertPost(ctx, post)
	if err != nil {
		err = fmt.Errorf("store roundup: %w", err)
		res.Failed++
		p.finish(ctx, "roundup", start, res, err)
		return res, err
	}
	if err := p.posts.RecordArticleUsage(ctx, postID, ids); err != nil {
		p.logger.ErrorContext(ctx, "record roundup usage", "post_id", postID, "error", err)
	}

	res.Processed = len(articles)
	res.Created = 1
	p.logger.InfoContext(ctx, "roundup created", "post_id", postID, "stories", len(articles), "language", lang)
	p.finish(ctx, "roundup", start, res, nil)
	return res, nil
}
