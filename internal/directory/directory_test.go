package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/internal/repository"
)

func TestLookup_BeforeAnySave(t *testing.T) {
	d := New(repository.NewMemoryKV(), nil)
	assert.Equal(t, "", d.Lookup(context.Background(), "1790000000001"))
}

func TestSaveAndLookup(t *testing.T) {
	ctx := context.Background()
	d := New(repository.NewMemoryKV(), nil)

	n, err := d.Save(ctx, map[string]string{"1790000000001": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, "a@b.com", d.Lookup(ctx, "1790000000001"))
	assert.Equal(t, "a@b.com", d.Lookup(ctx, " 1790000000001 "))
	assert.Equal(t, "", d.Lookup(ctx, "9999999999999"))
}

func TestSave_ReplacesWholeMapping(t *testing.T) {
	ctx := context.Background()
	d := New(repository.NewMemoryKV(), nil)

	_, err := d.Save(ctx, map[string]string{"1": "one@x.com", "2": "two@x.com"})
	require.NoError(t, err)
	_, err = d.Save(ctx, map[string]string{"2": "new@x.com"})
	require.NoError(t, err)

	assert.Equal(t, "", d.Lookup(ctx, "1"))
	assert.Equal(t, "new@x.com", d.Lookup(ctx, "2"))

	all, err := d.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2": "new@x.com"}, all)
}

func TestSave_TrimsAndDropsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	d := New(repository.NewMemoryKV(), nil)

	n, err := d.Save(ctx, map[string]string{" 1 ": "  a@b.com ", "  ": "x@y.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "a@b.com", d.Lookup(ctx, "1"))
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, bool, error) { return "", false, errors.New("disk") }
func (brokenKV) Set(context.Context, string, string) error         { return errors.New("disk") }

func TestLookup_NeverFails(t *testing.T) {
	d := New(brokenKV{}, nil)
	assert.Equal(t, "", d.Lookup(context.Background(), "1"))

	_, err := d.Save(context.Background(), map[string]string{"1": "a"})
	assert.Error(t, err)
}

func TestLookup_CorruptValue(t *testing.T) {
	kv := repository.NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), "provider-emails", "not json"))
	d := New(kv, nil)
	assert.Equal(t, "", d.Lookup(context.Background(), "1"))
	_, err := d.All(context.Background())
	assert.Error(t, err)
}
