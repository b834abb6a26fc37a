package repository

import (
	"context"
	"slices"
	"strings"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

// RetentionStore is the owner-partitioned record collection. Every call is
// scoped to ownerID and no implementation reads or writes across owners.
type RetentionStore interface {
	// Create assigns id and createdAt and returns the stored record.
	Create(ctx context.Context, ownerID string, in entity.NewRetention) (entity.RetentionRecord, error)
	Get(ctx context.Context, ownerID, id string) (entity.RetentionRecord, error)
	// List returns the owner's records, newest first.
	List(ctx context.Context, ownerID string) ([]entity.RetentionRecord, error)
	// FindByNumeroRetencion returns nil, nil when there is no match.
	FindByNumeroRetencion(ctx context.Context, ownerID, numero string) (*entity.RetentionRecord, error)
	// Update merges patch and fails with NotFound when id is absent.
	Update(ctx context.Context, ownerID, id string, patch entity.RetentionPatch) (entity.RetentionRecord, error)
	// Delete is idempotent.
	Delete(ctx context.Context, ownerID, id string) error
	Ping(ctx context.Context) error
	Close() error
}

func checkOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return common.InvalidInputf("owner id is required")
	}
	return nil
}

func checkOwnerAndID(ownerID, id string) error {
	if err := checkOwner(ownerID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return common.InvalidInputf("retention id is required")
	}
	return nil
}

// prepareCreate validates in and fills the default estado.
func prepareCreate(ownerID string, in entity.NewRetention) (entity.NewRetention, error) {
	if err := checkOwner(ownerID); err != nil {
		return in, err
	}
	if strings.TrimSpace(in.Data.NumeroRetencion) == "" {
		return in, common.InvalidInputf("numeroRetencion is required")
	}
	if in.Estado == "" {
		in.Estado = constants.InitialStatus
	}
	if !in.Estado.Valid() {
		return in, common.InvalidInputf("unknown estado %q", in.Estado)
	}
	return in, nil
}

func checkPatch(patch entity.RetentionPatch) error {
	if patch.IsEmpty() {
		return common.InvalidInputf("empty update")
	}
	if patch.Estado != nil && !patch.Estado.Valid() {
		return common.InvalidInputf("unknown estado %q", *patch.Estado)
	}
	return nil
}

func notFound(id string) error {
	return common.NotFoundf("retention %s not found", id)
}

// SortNewestFirst orders records by createdAt descending, breaking ties by id.
func SortNewestFirst(recs []entity.RetentionRecord) {
	slices.SortStableFunc(recs, func(a, b entity.RetentionRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
