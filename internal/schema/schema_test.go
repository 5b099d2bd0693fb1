package schema

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/checklist/internal/registry"
	"github.com/mesh-intelligence/checklist/internal/version"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

func TestEmpty(t *testing.T) {
	blob := Empty()
	assert.JSONEq(t, `{"version":"1.0.0","items":[]}`, string(blob))

	v, err := version.Of(blob)
	require.NoError(t, err)
	assert.Equal(t, Baseline, v.String())
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, V1_0_0, r.Baseline().String())
	assert.Equal(t, V1_1_0, r.Latest().String())

	path, err := r.ResolvePath(version.MustParse(V1_0_0), r.Latest())
	require.NoError(t, err)
	assert.Equal(t, types.MigrationPath{"v1.0.0-to-v1.0.1", "v1.0.1-to-v1.1.0"}, registry.PathIDs(path))
}

func TestAddSettingsAndNotes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adds both",
			in:   `{"version":"1.0.0","items":[{"id":"a","title":"A","done":true},{"id":"b","title":"B","done":false}]}`,
			want: `{"version":"1.0.0","settings":{},"items":[{"id":"a","title":"A","done":true,"notes":""},{"id":"b","title":"B","done":false,"notes":""}]}`,
		},
		{
			name: "keeps existing",
			in:   `{"version":"1.0.0","settings":{"theme":"dark"},"items":[{"id":"a","title":"A","done":false,"notes":"n"}]}`,
			want: `{"version":"1.0.0","settings":{"theme":"dark"},"items":[{"id":"a","title":"A","done":false,"notes":"n"}]}`,
		},
		{
			name: "missing items",
			in:   `{"version":"1.0.0"}`,
			want: `{"version":"1.0.0","settings":{},"items":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addSettingsAndNotes(ctx, []byte(tt.in))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestItemsToTasks(t *testing.T) {
	ctx := context.Background()
	in := `{"version":"1.0.1","settings":{},"items":[{"id":"a","title":"A","done":true,"notes":""},{"id":"b","title":"B","done":false,"notes":"x"}]}`

	got, err := itemsToTasks(ctx, []byte(in))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.1","settings":{},"tasks":[
		{"id":"a","title":"A","notes":"","status":"done"},
		{"id":"b","title":"B","notes":"x","status":"pending"}]}`, string(got))
	assert.False(t, gjson.GetBytes(got, "items").Exists())
}

func TestItemsToTasks_Empty(t *testing.T) {
	got, err := itemsToTasks(context.Background(), []byte(`{"version":"1.0.1","settings":{},"items":[]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.1","settings":{},"tasks":[]}`, string(got))
}

func TestTransforms_RejectMalformed(t *testing.T) {
	ctx := context.Background()
	for _, step := range Steps() {
		for _, in := range []string{`not json`, `[1,2]`, `{"version":"1.0.0","items":"nope"}`} {
			_, err := step.Transform(ctx, []byte(in))
			assert.True(t, errors.Is(err, types.ErrStateCorruption), "%s on %q: %v", step.ID, in, err)
		}
	}
}

func TestTransforms_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, step := range Steps() {
		_, err := step.Transform(ctx, Empty())
		assert.ErrorIs(t, err, context.Canceled, step.ID)
	}
}
