package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsCast/internal/domain"
	"NewsCast/internal/infrastructure/storage"
	"NewsCast/internal/scanner"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRules(t *testing.T) *scanner.Table {
	t.Helper()
	table, err := scanner.NewTable([]scanner.RuleSpec{{
		Domain:  "news.example",
		BaseURL: "https://news.example",
		Allow:   []string{`^https://news\.example/story/`},
	}})
	require.NoError(t, err)
	return table
}

// newTestPipeline wires store-backed repositories; collaborators come from deps.
func newTestPipeline(t *testing.T, store *storage.Store, deps PipelineDeps) *Pipeline {
	t.Helper()
	deps.Pages = store
	deps.URLs = store
	deps.Articles = store
	deps.Posts = store
	deps.Projects = store
	deps.Performance = store
	if deps.Rules == nil {
		deps.Rules = testRules(t)
	}
	if deps.Logger == nil {
		deps.Logger = quietLogger()
	}
	return NewPipeline(deps)
}

// seedExtracted stores an article that is ready for judging.
func seedExtracted(t *testing.T, store *storage.Store, url, summary string) string {
	t.Helper()
	ctx := context.Background()
	id, err := store.UpsertRawArticle(ctx, domain.Article{SourceURL: url, SourceWebsite: "news.example", RawHTML: "<p>x</p>"})
	require.NoError(t, err)
	require.NoError(t, store.MarkArticleExtracted(ctx, id, domain.Extraction{Title: "Title " + url, Summary: summary, Content: "Content of " + url}))
	return id
}

// seedScored stores an article that is ready for generation.
func seedScored(t *testing.T, store *storage.Store, url string, score int, formats ...domain.ContentType) string {
	t.Helper()
	id := seedExtracted(t, store, url, "Summary of "+url)
	require.NoError(t, store.MarkArticleScored(context.Background(), id, score, domain.FormatList(formats)))
	return id
}

type fakeFetcher struct {
	pages   map[string]string
	lengths map[string]int64
	mu      sync.Mutex
	gets    []string
}

func (f *fakeFetcher) Get(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.gets = append(f.gets, url)
	f.mu.Unlock()
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("GET %s: 503 Service Unavailable", url)
	}
	return html, nil
}

func (f *fakeFetcher) ContentLength(_ context.Context, url string) (int64, error) {
	if n, ok := f.lengths[url]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("HEAD %s: 404", url)
}

type distillFunc func(ctx context.Context, sourceURL, rawHTML string) (domain.Extraction, error)

func (f distillFunc) Distill(ctx context.Context, sourceURL, rawHTML string) (domain.Extraction, error) {
	return f(ctx, sourceURL, rawHTML)
}

type judgeFunc func(ctx context.Context, summary string) (domain.Verdict, error)

func (f judgeFunc) Judge(ctx context.Context, summary string) (domain.Verdict, error) {
	return f(ctx, summary)
}

type generateCall struct {
	Model   string
	Formats []domain.ContentType
	Variant int
}

type fakeGenerator struct {
	replies map[string]map[domain.ContentType]string
	errs    map[string]error
	calls   []generateCall
}

func (g *fakeGenerator) Generate(_ context.Context, model, _ string, formats []domain.ContentType, variant int) (map[domain.ContentType]json.RawMessage, error) {
	g.calls = append(g.calls, generateCall{Model: model, Formats: formats, Variant: variant})
	if err := g.errs[model]; err != nil {
		return nil, err
	}
	out := make(map[domain.ContentType]json.RawMessage)
	for ct, raw := range g.replies[model] {
		out[ct] = json.RawMessage(raw)
	}
	return out, nil
}

type fakeSelector struct {
	ref  domain.WinnerRef
	err  error
	seen [][]domain.Candidate
}

func (s *fakeSelector) PickWinner(_ context.Context, _ domain.ContentType, candidates []domain.Candidate) (domain.WinnerRef, error) {
	s.seen = append(s.seen, candidates)
	return s.ref, s.err
}

type fakeWriter struct {
	dialogue domain.Dialogue
	err      error
	stories  []domain.Story
	label    string
}

func (w *fakeWriter) Model() string { return "roundup-model" }

func (w *fakeWriter) WriteRoundup(_ context.Context, stories []domain.Story, label string) (domain.Dialogue, error) {
	w.stories = stories
	w.label = label
	return w.dialogue, w.err
}

type storedObject struct {
	data         []byte
	contentType  string
	cacheControl string
}

type memObjectStore struct {
	base    string
	objects map[string]storedObject
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{base: "https://cdn.example", objects: make(map[string]storedObject)}
}

func (m *memObjectStore) Upload(_ context.Context, key string, body io.Reader, _ int64, contentType, cacheControl string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = storedObject{data: data, contentType: contentType, cacheControl: cacheControl}
	return m.PublicURL(key), nil
}

func (m *memObjectStore) PublicURL(key string) string {
	return m.base + "/" + key
}

type fakeAudio struct {
	dir     string
	renders int
	err     error
}

func (a *fakeAudio) Path(postID string) string {
	return filepath.Join(a.dir, postID+".mp3")
}

func (a *fakeAudio) Render(_ context.Context, postID string, dialogue domain.Dialogue) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.renders++
	data := make([]byte, 0, 64)
	for _, turn := range dialogue.Dialogue {
		data = append(data, turn.Text...)
	}
	path := a.Path(postID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeArtwork struct {
	path string
	err  error
}

func (a *fakeArtwork) Artwork(context.Context, string, string) (string, error) {
	return a.path, a.err
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Announce(_ context.Context, msg string) error {
	n.messages = append(n.messages, msg)
	return nil
}

type stageSample struct {
	stage                      string
	processed, skipped, failed int
	err                        error
}

type recordingObserver struct {
	samples []stageSample
}

func (o *recordingObserver) ObserveStage(stage string, processed, skipped, failed int, _ time.Duration, err error) {
	o.samples = append(o.samples, stageSample{stage, processed, skipped, failed, err})
}
