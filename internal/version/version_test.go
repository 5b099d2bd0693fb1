package version

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/checklist/pkg/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1.0.0", want: "1.0.0"},
		{in: "v1.2.3", want: "1.2.3"},
		{in: " 10.0.1 ", want: "10.0.1"},
		{in: "1.0", wantErr: true},
		{in: "one", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.0.0-beta.1", wantErr: true},
		{in: "1.0.0+build.5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, types.ErrInvalidVersion), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.0.10", "1.0.9", 1},
		{"1.1.0", "1.0.99", 1},
		{"2.0.0", "10.0.0", -1},
	}
	for _, tt := range tests {
		got, err := CompareStrings(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, sign(got), "%s vs %s", tt.a, tt.b)
		assert.Equal(t, -sign(got), sign(Compare(MustParse(tt.b), MustParse(tt.a))))
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}

func TestOf(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		want    string
		wantErr bool
	}{
		{name: "string version", blob: `{"version":"1.0.1","items":[]}`, want: "1.0.1"},
		{name: "missing field", blob: `{"items":[]}`, wantErr: true},
		{name: "numeric field", blob: `{"version":1}`, wantErr: true},
		{name: "unparsable field", blob: `{"version":"latest"}`, wantErr: true},
		{name: "not json", blob: `version: 1.0.0`, wantErr: true},
		{name: "empty", blob: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of([]byte(tt.blob))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, types.ErrStateCorruption), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

type staticStore struct {
	blob []byte
	err  error
}

func (s staticStore) Load(context.Context) ([]byte, error) { return s.blob, s.err }
func (s staticStore) Save(context.Context, []byte) error   { return nil }

type staticTarget string

func (s staticTarget) Latest() Version { return MustParse(string(s)) }

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("current and target", func(t *testing.T) {
		r := NewResolver(staticStore{blob: []byte(`{"version":"1.0.0"}`)}, staticTarget("1.1.0"))
		cur, err := r.CurrentVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", cur.String())
		assert.Equal(t, "1.1.0", r.TargetVersion().String())
	})

	t.Run("store errors pass through", func(t *testing.T) {
		r := NewResolver(staticStore{err: types.ErrStateNotFound}, staticTarget("1.1.0"))
		_, err := r.CurrentVersion(ctx)
		assert.True(t, errors.Is(err, types.ErrStateNotFound))
	})

	t.Run("corrupt state", func(t *testing.T) {
		r := NewResolver(staticStore{blob: []byte(`{}`)}, staticTarget("1.1.0"))
		_, err := r.CurrentVersion(ctx)
		assert.True(t, errors.Is(err, types.ErrStateCorruption))
	})
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
