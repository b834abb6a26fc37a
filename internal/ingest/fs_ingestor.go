package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
)

const maxFileBytes = constants.MaxPDFSizeMB << 20

// FSIngestor submits PDFs from the local filesystem. Files whose content
// was already handled for the same owner are skipped.
type FSIngestor struct {
	submitter Submitter
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]map[string]struct{} // owner -> sha256 hex
}

func NewFSIngestor(submitter Submitter, logger *slog.Logger) *FSIngestor {
	return &FSIngestor{
		submitter: submitter,
		logger:    common.LoggerOrDefault(logger),
		seen:      make(map[string]map[string]struct{}),
	}
}

// IngestPath submits one file. The returned error is also recorded in the
// result; callers walking many files usually only look at the result.
func (i *FSIngestor) IngestPath(ctx context.Context, ownerID, path string) (FileResult, error) {
	start := time.Now()
	out := FileResult{Path: path, Outcome: OutcomeFailed}

	fail := func(err error) (FileResult, error) {
		out.Err = err.Error()
		i.logger.Warn("ingest.file.failed", "owner", ownerID, "path", path, "error", err)
		return out, err
	}

	if strings.TrimSpace(ownerID) == "" {
		return fail(common.InvalidInputf("owner id is required"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fail(err)
	}
	out.Path = abs
	if !AllowedExt(filepath.Ext(abs)) {
		return fail(common.InvalidInputf("unsupported extension %q", filepath.Ext(abs)))
	}

	pdf, err := readLimited(abs, maxFileBytes)
	if err != nil {
		return fail(err)
	}
	sum := sha256.Sum256(pdf)
	out.HashHex = hex.EncodeToString(sum[:])

	if !i.claim(ownerID, out.HashHex) {
		out.Outcome = OutcomeUnchanged
		i.logger.Debug("ingest.file.unchanged", "owner", ownerID, "path", abs, "sha256", out.HashHex)
		return out, nil
	}

	res, err := i.submitter.SubmitPDF(ctx, ownerID, filepath.Base(abs), pdf)
	if err != nil {
		i.release(ownerID, out.HashHex)
		return fail(err)
	}

	out.RecordID = res.Record.ID
	out.Numero = res.Record.NumeroRetencion
	if res.Duplicate {
		out.Outcome = OutcomeDuplicate
		out.Message = res.DuplicateMessage
		i.logger.Info("ingest.file.duplicate",
			"owner", ownerID,
			"path", abs,
			"numero_retencion", out.Numero,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, nil
	}
	out.Outcome = OutcomeCreated
	i.logger.Info("ingest.file.ok",
		"owner", ownerID,
		"path", abs,
		"id", out.RecordID,
		"numero_retencion", out.Numero,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, ownerID, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInputf("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Outcome: OutcomeFailed, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, _ := i.IngestPath(ctx, ownerID, path)
		results = append(results, r)
		stats.add(r)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	return results, stats, nil
}

// claim marks sum as handled for ownerID and reports whether this caller
// got it first. A failed submission gives the claim back with release.
func (i *FSIngestor) claim(ownerID, sum string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	set, ok := i.seen[ownerID]
	if !ok {
		set = make(map[string]struct{})
		i.seen[ownerID] = set
	}
	if _, dup := set[sum]; dup {
		return false
	}
	set[sum] = struct{}{}
	return true
}

func (i *FSIngestor) release(ownerID, sum string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen[ownerID], sum)
}

func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, common.InvalidInputf("%s exceeds %d MB", filepath.Base(path), limit>>20)
	}
	if len(data) == 0 {
		return nil, common.InvalidInputf("%s is empty", filepath.Base(path))
	}
	return data, nil
}
