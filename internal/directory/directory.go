package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
)

// KV is the persistence the directory needs: one namespaced key holding
// the serialized mapping.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Directory maps provider RUC to contact e-mail.
type Directory struct {
	kv     KV
	key    string
	logger *slog.Logger
}

func New(kv KV, logger *slog.Logger) *Directory {
	return &Directory{kv: kv, key: constants.ProviderEmailsKey, logger: common.LoggerOrDefault(logger)}
}

// Save replaces the whole mapping. Keys and values are trimmed; entries with
// an empty RUC are dropped. No other validation happens here.
func (d *Directory) Save(ctx context.Context, mapping map[string]string) (int, error) {
	clean := make(map[string]string, len(mapping))
	for ruc, email := range mapping {
		ruc = strings.TrimSpace(ruc)
		if ruc == "" {
			continue
		}
		clean[ruc] = strings.TrimSpace(email)
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return 0, eris.Wrap(err, "directory: encode mapping")
	}
	if err := d.kv.Set(ctx, d.key, string(b)); err != nil {
		return 0, common.StoreFailure("save provider emails", err)
	}
	d.logger.Info("directory.save.ok", "entries", len(clean))
	return len(clean), nil
}

// Lookup returns the e-mail for ruc, or "" when unknown. It never fails;
// read problems are logged and reported as "".
func (d *Directory) Lookup(ctx context.Context, ruc string) string {
	all, err := d.load(ctx)
	if err != nil {
		d.logger.Warn("directory.lookup.failed", "ruc", ruc, "error", err)
		return ""
	}
	return all[strings.TrimSpace(ruc)]
}

// All returns a copy of the stored mapping.
func (d *Directory) All(ctx context.Context) (map[string]string, error) {
	all, err := d.load(ctx)
	if err != nil {
		return nil, common.StoreFailure("load provider emails", err)
	}
	return all, nil
}

func (d *Directory) load(ctx context.Context) (map[string]string, error) {
	raw, ok, err := d.kv.Get(ctx, d.key)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if !ok || raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, eris.Wrap(err, "directory: decode mapping")
	}
	return out, nil
}
