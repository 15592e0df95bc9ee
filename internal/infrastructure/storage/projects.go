package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsCast/internal/domain"
)

// GetProject loads a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var project domain.Project
	q := s.sb.Select("id", "name", "language", "podcast_image_prompt").From("projects").Where(sq.Eq{"id": id})
	if err := s.getInto(ctx, &project, q); err != nil {
		return domain.Project{}, fmt.Errorf("get project %s: %w", id, notFound(err))
	}
	return project, nil
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	q := s.sb.Select("id", "name", "language", "podcast_image_prompt").From("projects").OrderBy("name", "id")
	if err := s.selectInto(ctx, &projects, q); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// SaveProject inserts or updates project reference data.
func (s *Store) SaveProject(ctx context.Context, project domain.Project) error {
	q := s.sb.Insert("projects").
		Columns("id", "name", "language", "podcast_image_prompt").
		Values(project.ID, project.Name, project.Language, project.PodcastImagePrompt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			language = excluded.language,
			podcast_image_prompt = excluded.podcast_image_prompt`)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("save project %s: %w", project.ID, err)
	}
	return nil
}

// RecordOutcome adds one tournament result to the model's running totals.
func (s *Store) RecordOutcome(ctx context.Context, model string, contentType domain.ContentType, won bool) error {
	wins, losses := 0, 1
	if won {
		wins, losses = 1, 0
	}

	q := s.sb.Insert("model_performance").
		Columns("model_name", "content_type", "wins", "losses", "total_runs", "updated_at").
		Values(model, string(contentType), wins, losses, 1, s.now()).
		Suffix(`ON CONFLICT (model_name, content_type) DO UPDATE SET
			wins = model_performance.wins + excluded.wins,
			losses = model_performance.losses + excluded.losses,
			total_runs = model_performance.total_runs + 1,
			updated_at = excluded.updated_at`)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("record outcome for %s/%s: %w", model, contentType, err)
	}
	return nil
}

// ModelPerformance is the running tournament record of one model and format.
type ModelPerformance struct {
	ModelName   string    `db:"model_name"`
	ContentType string    `db:"content_type"`
	Wins        int       `db:"wins"`
	Losses      int       `db:"losses"`
	TotalRuns   int       `db:"total_runs"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ListPerformance returns all model records, best win count first.
func (s *Store) ListPerformance(ctx context.Context) ([]ModelPerformance, error) {
	var rows []ModelPerformance
	q := s.sb.Select("model_name", "content_type", "wins", "losses", "total_runs", "updated_at").
		From("model_performance").
		OrderBy("wins DESC", "model_name", "content_type")
	if err := s.selectInto(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}
	return rows, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
