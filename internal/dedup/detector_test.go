package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

type finderFunc func(ctx context.Context, ownerID, numero string) (*entity.RetentionRecord, error)

func (f finderFunc) FindByNumeroRetencion(ctx context.Context, ownerID, numero string) (*entity.RetentionRecord, error) {
	return f(ctx, ownerID, numero)
}

func TestCheck_NoMatch(t *testing.T) {
	d := NewDetector(finderFunc(func(_ context.Context, owner, numero string) (*entity.RetentionRecord, error) {
		assert.Equal(t, "u1", owner)
		assert.Equal(t, "001-002-123456789", numero)
		return nil, nil
	}), nil)

	res, err := d.Check(context.Background(), "u1", entity.RetentionData{NumeroRetencion: " 001-002-123456789 "})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Empty(t, res.Message())
}

func TestCheck_MatchAnyStatus(t *testing.T) {
	for _, st := range constants.AllStatuses {
		d := NewDetector(finderFunc(func(context.Context, string, string) (*entity.RetentionRecord, error) {
			return &entity.RetentionRecord{ID: "r1", Estado: st}, nil
		}), nil)

		res, err := d.Check(context.Background(), "u1", entity.RetentionData{NumeroRetencion: "001-002-123456789"})
		require.NoError(t, err)
		assert.True(t, res.Duplicate, st)
		assert.Equal(t, "r1", res.Match.ID)
		assert.Contains(t, res.Message(), "001-002-123456789")
		assert.Contains(t, res.Message(), st.String())
	}
}

func TestCheck_FailsClosed(t *testing.T) {
	d := NewDetector(finderFunc(func(context.Context, string, string) (*entity.RetentionRecord, error) {
		return nil, errors.New("connection reset")
	}), nil)

	res, err := d.Check(context.Background(), "u1", entity.RetentionData{NumeroRetencion: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStore)
	assert.False(t, res.Duplicate)
}

func TestCheck_EmptyNumero(t *testing.T) {
	d := NewDetector(finderFunc(func(context.Context, string, string) (*entity.RetentionRecord, error) {
		t.Fatal("finder must not be called")
		return nil, nil
	}), nil)
	_, err := d.Check(context.Background(), "u1", entity.RetentionData{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
