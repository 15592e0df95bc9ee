package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCast/internal/config"
	"NewsCast/internal/domain"
	"NewsCast/internal/usecase"
)

func loadTestConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "database:\n" +
		"  driver: sqlite3\n" +
		"  dsn: " + filepath.Join(dir, "app.db") + "\n" +
		"podcast:\n" +
		"  mediaDir: " + filepath.Join(dir, "media") + "\n" +
		"projects:\n" +
		"  - id: celeb\n" +
		"    name: Celebrities / Entertainment\n" +
		"    language: sk\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	for _, env := range []string{"R2_ENDPOINT", "R2_BUCKET", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_PUBLIC_BASE_URL", "DATABASE_DSN", "DATABASE_DRIVER"} {
		t.Setenv(env, "")
	}
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNewSeedsProjectsAndPublishesWithoutStorage(t *testing.T) {
	cfg := loadTestConfig(t)
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	project, err := a.store.GetProject(context.Background(), "celeb")
	require.NoError(t, err)
	assert.Equal(t, "sk", project.Language)

	res, err := a.Publisher().PublishProject(context.Background(), "celeb", false)
	require.NoError(t, err)
	assert.Equal(t, usecase.StatusMissingStorage, res.Status)
	assert.NotNil(t, a.MetricsHandler())
}

func TestFormatPolicyFromConfig(t *testing.T) {
	policy := formatPolicy([]config.FormatBand{
		{MinScore: 5, Formats: []string{"headline", "bogus"}},
		{MinScore: 9, Formats: []string{"VIDEO"}},
	})
	assert.Equal(t, domain.FormatList{domain.ContentVideo}, policy.Formats(9))
	assert.Equal(t, domain.FormatList{domain.ContentHeadline}, policy.Formats(6))

	assert.Equal(t, usecase.DefaultFormatPolicy(), formatPolicy(nil))
}

func TestPlatformsSkipUnknownFormats(t *testing.T) {
	got := platforms(map[string]string{"video": "tiktok", "tweet": "x"})
	assert.Equal(t, map[domain.ContentType]string{domain.ContentVideo: "tiktok"}, got)
}
