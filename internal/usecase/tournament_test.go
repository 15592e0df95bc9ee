package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCast/internal/domain"
	"NewsCast/internal/infrastructure/storage"
)

// seedHeadlines stores one headline candidate per entry of models, tagged
// with variant ids starting at 1 when tag is set.
func seedHeadlines(t *testing.T, store *storage.Store, articleID string, tag bool, models ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(models))
	for i, model := range models {
		payload := domain.Payload{ContentType: domain.ContentHeadline, Headline: &domain.Headline{Text: fmt.Sprintf("take %d", i+1)}}
		if tag {
			payload = payload.WithVariant(i + 1)
		}
		post, err := domain.NewPost(&articleID, "instagram", model, payload)
		require.NoError(t, err)
		id, err := store.InsertPost(context.Background(), post)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func selectedIDs(t *testing.T, store *storage.Store, ids []string) []string {
	t.Helper()
	var out []string
	for _, id := range ids {
		post, err := store.GetPost(context.Background(), id)
		require.NoError(t, err)
		if post.Selected {
			out = append(out, id)
		}
	}
	return out
}

func TestRunTournamentPicksVariantWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sel := &fakeSelector{ref: domain.WinnerRef{VariantID: 2, Reasoning: "sharper hook"}}
	p := newTestPipeline(t, store, PipelineDeps{Selector: sel})

	articleID := seedScored(t, store, "https://news.example/story/t", 8, domain.ContentHeadline)
	ids := seedHeadlines(t, store, articleID, true, "model-a", "model-a")

	res, err := p.RunTournament(ctx, domain.ContentHeadline, 10)
	require.NoError(t, err)
	assert.Equal(t, StageResult{Processed: 1}, res)
	assert.Equal(t, []string{ids[1]}, selectedIDs(t, store, ids))

	require.Len(t, sel.seen, 1)
	require.Len(t, sel.seen[0], 2)
	assert.Equal(t, 1, sel.seen[0][0].VariantID)
	assert.JSONEq(t, `{"variant_id":1,"text":"take 1"}`, string(sel.seen[0][0].Content))

	perf, err := store.ListPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Equal(t, "model-a", perf[0].ModelName)
	assert.Equal(t, 1, perf[0].Wins)
	assert.Equal(t, 1, perf[0].Losses)
	assert.Equal(t, 2, perf[0].TotalRuns)

	// The group is closed, so a rerun finds nothing to do.
	res, err = p.RunTournament(ctx, domain.ContentHeadline, 10)
	require.NoError(t, err)
	assert.Equal(t, StageResult{}, res)
	assert.Len(t, sel.seen, 1)
}

func TestRunTournamentMatchesModelWithoutVariants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := newTestPipeline(t, store, PipelineDeps{Selector: &fakeSelector{ref: domain.WinnerRef{Model: "MODEL-B"}}})

	articleID := seedScored(t, store, "https://news.example/story/m", 8, domain.ContentHeadline)
	ids := seedHeadlines(t, store, articleID, false, "model-a", "model-b")

	res, err := p.RunTournament(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, []string{ids[1]}, selectedIDs(t, store, ids))
}

func TestRunTournamentFallsBackToFirstCandidate(t *testing.T) {
	cases := map[string]*fakeSelector{
		"malformed": {err: fmt.Errorf("selection reply: %w", domain.ErrMalformedResponse)},
		"no match":  {ref: domain.WinnerRef{VariantID: 9, Model: "model-b"}},
		"nil":       nil,
	}
	for name, sel := range cases {
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t)
			deps := PipelineDeps{}
			if sel != nil {
				deps.Selector = sel
			}
			p := newTestPipeline(t, store, deps)

			articleID := seedScored(t, store, "https://news.example/story/f", 8, domain.ContentHeadline)
			ids := seedHeadlines(t, store, articleID, true, "model-a", "model-b")

			res, err := p.RunTournament(context.Background(), domain.ContentHeadline, 10)
			require.NoError(t, err)
			assert.Equal(t, StageResult{Processed: 1}, res)
			assert.Equal(t, []string{ids[0]}, selectedIDs(t, store, ids))
		})
	}
}

func TestRunTournamentKeepsGroupOpenOnTransportError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := newTestPipeline(t, store, PipelineDeps{Selector: &fakeSelector{err: errors.New("dial tcp: connection refused")}})

	articleID := seedScored(t, store, "https://news.example/story/o", 8, domain.ContentHeadline)
	ids := seedHeadlines(t, store, articleID, true, "model-a", "model-b")

	res, err := p.RunTournament(ctx, domain.ContentHeadline, 10)
	require.NoError(t, err)
	assert.Equal(t, StageResult{Failed: 1}, res)
	assert.Empty(t, selectedIDs(t, store, ids))

	groups, err := store.ListOpenGroups(ctx, domain.ContentHeadline, 10)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	perf, err := store.ListPerformance(ctx)
	require.NoError(t, err)
	assert.Empty(t, perf)
}

func TestResolveWinner(t *testing.T) {
	tagged := []domain.Candidate{
		{PostID: "p1", VariantID: 1, Model: "alpha"},
		{PostID: "p2", VariantID: 2, Model: "beta"},
	}
	untagged := []domain.Candidate{
		{PostID: "p1", Model: "alpha"},
		{PostID: "p2", Model: "beta"},
	}

	tests := []struct {
		name       string
		candidates []domain.Candidate
		ref        domain.WinnerRef
		want       string
		ok         bool
	}{
		{"variant", tagged, domain.WinnerRef{VariantID: 2}, "p2", true},
		{"variant wins over model", tagged, domain.WinnerRef{VariantID: 1, Model: "beta"}, "p1", true},
		{"unknown variant is no match", tagged, domain.WinnerRef{VariantID: 7, Model: "Beta"}, "", false},
		{"model when ref has no variant", tagged, domain.WinnerRef{Model: "Beta"}, "p2", true},
		{"model", untagged, domain.WinnerRef{Model: " beta "}, "p2", true},
		{"variant ignored when untagged", untagged, domain.WinnerRef{VariantID: 2}, "", false},
		{"nothing", tagged, domain.WinnerRef{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveWinner(tt.candidates, tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.PostID)
		})
	}
}
