package catalog

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/devserver"
	"github.com/clive/jira-tui/internal/model"
)

// newCatalog registers a user on a fresh dev backend and returns a catalog
// authenticated as that user plus a counter of GET /subtasks calls.
func newCatalog(t *testing.T) (*Catalog, *atomic.Int64) {
	t.Helper()

	backend := devserver.New(nil)
	router := backend.Router()
	lists := &atomic.Int64{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/v1/subtasks" {
			lists.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	client := api.NewClient(ts.URL, 0, nil)
	ctx := context.Background()
	_, err := client.Register(ctx, model.Registration{Email: "c@example.test", Username: "carol", Password: "carol-password"})
	require.NoError(t, err)
	token, err := client.Login(ctx, "carol", "carol-password")
	require.NoError(t, err)

	return New(client.WithToken(token), nil), lists
}

func TestListIsFetchedOnce(t *testing.T) {
	c, lists := newCatalog(t)
	ctx := context.Background()

	first, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 6)

	second, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), lists.Load())
	assert.True(t, c.Loaded())
}

func TestReloadFetchesAgain(t *testing.T) {
	c, lists := newCatalog(t)
	ctx := context.Background()

	_, err := c.List(ctx)
	require.NoError(t, err)
	items, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 6)
	assert.Equal(t, int64(2), lists.Load())

	c.Reset()
	assert.False(t, c.Loaded())
	assert.Empty(t, c.Items())
	_, err = c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), lists.Load())
}

func TestListFailureReturnsEmptyWithError(t *testing.T) {
	c := New(api.NewClient("http://127.0.0.1:1", 0, nil).WithToken("x"), nil)

	items, err := c.List(context.Background())
	require.Error(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, err, c.Err())
	assert.False(t, c.Loaded())
}

func TestListWithoutTokenIsPrecondition(t *testing.T) {
	c := New(api.NewClient("http://127.0.0.1:1", 0, nil), nil)

	_, err := c.List(context.Background())
	assert.True(t, api.IsKind(err, api.KindPrecondition))
}

func TestMutationsRefetch(t *testing.T) {
	c, lists := newCatalog(t)
	ctx := context.Background()

	_, err := c.List(ctx)
	require.NoError(t, err)

	items, err := c.Create(ctx, model.SubtaskInput{Name: "Thumbnail", Emoji: "🖼", Labels: []string{" art ", "", "art", "cover"}})
	require.NoError(t, err)
	require.Len(t, items, 7)
	added := items[6]
	assert.Equal(t, "Thumbnail", added.Name)
	assert.Equal(t, []string{"art", "cover"}, added.Labels)
	assert.Equal(t, int64(2), lists.Load())

	name := "Cover art"
	items, err = c.Update(ctx, added.ID, model.SubtaskPatch{Name: &name})
	require.NoError(t, err)
	got, ok := c.Lookup(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Cover art", got.Name)
	assert.Len(t, items, 7)
	assert.Equal(t, int64(3), lists.Load())

	items, err = c.Delete(ctx, added.ID)
	require.NoError(t, err)
	assert.Len(t, items, 6)
	_, ok = c.Lookup(added.ID)
	assert.False(t, ok)
	assert.Equal(t, int64(4), lists.Load())
}

func TestUpdateClearsLabels(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	items, err := c.Create(ctx, model.SubtaskInput{Name: "Hashtags", Emoji: "#", Labels: []string{"a", "b"}})
	require.NoError(t, err)
	added := items[len(items)-1]
	require.Equal(t, []string{"a", "b"}, added.Labels)

	name := "Hashtag set"
	_, err = c.Update(ctx, added.ID, model.SubtaskPatch{Name: &name})
	require.NoError(t, err)
	got, ok := c.Lookup(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Hashtag set", got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Labels, "nil labels leave them unchanged")

	_, err = c.Update(ctx, added.ID, model.SubtaskPatch{Labels: ParseLabels("")})
	require.NoError(t, err)
	got, ok = c.Lookup(added.ID)
	require.True(t, ok)
	assert.Empty(t, got.Labels)
}

func TestCreateValidation(t *testing.T) {
	c, lists := newCatalog(t)

	_, err := c.Create(context.Background(), model.SubtaskInput{Name: "  ", Emoji: "x"})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = c.Create(context.Background(), model.SubtaskInput{Name: "x"})
	assert.ErrorIs(t, err, ErrEmojiRequired)
	assert.Equal(t, int64(0), lists.Load())
}

func TestDeleteLastSubtaskRefusedLocally(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	items, err := c.List(ctx)
	require.NoError(t, err)
	for _, d := range items[1:] {
		_, err := c.Delete(ctx, d.ID)
		require.NoError(t, err)
	}

	remaining := c.Items()
	require.Len(t, remaining, 1)

	_, err = c.Delete(ctx, remaining[0].ID)
	assert.ErrorIs(t, err, ErrLastSubtask)
	assert.Len(t, c.Items(), 1)
}

func TestMoveReorders(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	items, err := c.List(ctx)
	require.NoError(t, err)
	last := items[len(items)-1]

	items, err = c.Move(ctx, last.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, last.ID, items[len(items)-2].ID)

	items, err = c.Move(ctx, last.ID, -100)
	require.NoError(t, err)
	assert.Equal(t, last.ID, items[0].ID)

	_, err = c.Move(ctx, model.SubtaskID(9999), 1)
	assert.ErrorIs(t, err, ErrUnknownSubtask)
}

func TestServerErrorKeepsCache(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	before, err := c.List(ctx)
	require.NoError(t, err)

	items, err := c.Update(ctx, model.SubtaskID(9999), model.SubtaskPatch{})
	require.Error(t, err)
	assert.Equal(t, "Subtask not found", api.Message(err))
	assert.Equal(t, before, items)
}

func TestParseLabels(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"reel", []string{"reel"}},
		{"a, b,,c", []string{"a", "b", "c"}},
		{" b , a , b ", []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabels(tt.in))
		})
	}
	assert.Equal(t, "a, b", FormatLabels([]string{"a", "b"}))
}

func TestExportImport(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	items, err := c.List(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, items[:2]))
	assert.Contains(t, buf.String(), "subtasks:")
	assert.Contains(t, buf.String(), "name: Selección de tomas")

	inputs, err := ReadExport(&buf)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	n, err := c.Import(ctx, inputs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, c.Items(), 8)
}

func TestReadExportRejectsIncomplete(t *testing.T) {
	_, err := ReadExport(strings.NewReader("subtasks:\n  - name: Edit\n"))
	assert.ErrorIs(t, err, ErrEmojiRequired)
}
