// Package ingest turns uploaded tabular files into queryable tables:
// delimiter sniffing, header normalization, column class inference,
// value conversion, and drop-then-recreate materialization into the
// store. Batches run under the store's replace lock; each file succeeds
// or fails on its own.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	qerrors "github.com/quarrydb/quarry/internal/errors"
	"github.com/quarrydb/quarry/internal/storage"
	"github.com/quarrydb/quarry/internal/store"
	"github.com/quarrydb/quarry/pkg/types"
)

// Pipeline ingests batches of tabular files into one store.
type Pipeline struct {
	store   *store.Store
	archive storage.ObjectStorage // nil disables raw-upload archival
	log     *slog.Logger
}

// New creates a pipeline. archive may be nil to skip archival; log may
// not be nil.
func New(s *store.Store, archive storage.ObjectStorage, log *slog.Logger) *Pipeline {
	return &Pipeline{store: s, archive: archive, log: log}
}

// ProcessBatch ingests the given files as one batch. Zip archives are
// expanded and each tabular member processed as its own file. When
// clearExisting is set, every user table is dropped before the first
// file is processed.
//
// The batch holds the store's replace lock for its whole duration, so
// concurrent batches serialize and queries observe either the old or the
// new tables, never a mix from one file.
//
// Per-file failures are reported in the result, not returned: the only
// error returns are batch-level failures (clear failed, bad archive
// with nothing processed).
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, clearExisting bool) (*types.BatchResult, error) {
	batchID := uuid.NewString()
	result := &types.BatchResult{BatchID: batchID}

	unlock := p.store.LockReplace()
	defer unlock()

	if clearExisting {
		if err := p.store.Clear(ctx); err != nil {
			return nil, err
		}
		p.log.InfoContext(ctx, "cleared existing tables", "batch_id", batchID)
	}

	tabular, expandFailures := p.expand(ctx, paths)
	result.Files = append(result.Files, expandFailures...)

	for _, path := range tabular {
		fr := p.processFile(ctx, batchID, path)
		result.Files = append(result.Files, fr)
		if fr.Success {
			result.TablesCreated++
		}
	}

	result.FilesProcessed = len(result.Files)
	for _, fr := range result.Files {
		if !fr.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", fr.Filename, fr.Error))
		}
	}
	result.Success = result.TablesCreated > 0
	result.Message = fmt.Sprintf("Processed %d/%d files successfully",
		result.TablesCreated, result.FilesProcessed)

	p.log.InfoContext(ctx, "batch complete",
		"batch_id", batchID,
		"files", result.FilesProcessed,
		"tables_created", result.TablesCreated,
		"errors", len(result.Errors),
	)
	return result, nil
}

// expand resolves the input paths into tabular files: zip archives are
// extracted, unsupported files become failed file results.
func (p *Pipeline) expand(ctx context.Context, paths []string) ([]string, []types.FileResult) {
	var tabular []string
	var failures []types.FileResult

	for _, path := range paths {
		name := filepath.Base(path)
		switch {
		case strings.EqualFold(filepath.Ext(name), ".zip"):
			destDir, err := os.MkdirTemp("", "quarry-extract-*")
			if err != nil {
				failures = append(failures, types.FileResult{Filename: name, Error: "could not create extraction directory"})
				continue
			}
			members, memberFailures, err := ExtractArchive(path, destDir)
			if err != nil {
				p.log.WarnContext(ctx, "archive rejected", "file", name, "error", err)
				failures = append(failures, types.FileResult{Filename: name, Error: qerrors.UserMessage(err)})
				continue
			}
			for _, mf := range memberFailures {
				p.log.WarnContext(ctx, "archive member rejected",
					"archive", name, "member", mf.Name, "error", mf.Err)
				failures = append(failures, types.FileResult{
					Filename: mf.Name,
					Error:    fmt.Sprintf("could not extract from %s", name),
				})
			}
			tabular = append(tabular, members...)
		case IsTabularFile(name):
			tabular = append(tabular, path)
		default:
			failures = append(failures, types.FileResult{
				Filename: name,
				Error:    fmt.Sprintf("unsupported file type %s", filepath.Ext(name)),
			})
		}
	}
	return tabular, failures
}

// processFile ingests one tabular file into its own table.
func (p *Pipeline) processFile(ctx context.Context, batchID, path string) types.FileResult {
	name := filepath.Base(path)
	fr := types.FileResult{Filename: name}

	data, err := os.ReadFile(path)
	if err != nil {
		fr.Error = "could not read file"
		return fr
	}
	fr.Fingerprint = fingerprint(data)

	tableName := store.TableNameFromFilename(name)
	if tableName == "" {
		fr.Error = "filename does not yield a usable table name"
		return fr
	}

	headers, rows, err := parseTabular(data)
	if err != nil {
		p.log.WarnContext(ctx, "file rejected", "file", name, "error", err)
		fr.Error = qerrors.UserMessage(err)
		return fr
	}

	classes := inferColumns(headers, rows)
	if err := p.materialize(ctx, tableName, headers, classes, rows); err != nil {
		p.log.ErrorContext(ctx, "materialization failed", "file", name, "table", tableName, "error", err)
		fr.Error = qerrors.UserMessage(err)
		return fr
	}

	p.archiveUpload(ctx, batchID, name, data)

	fr.Success = true
	fr.TableName = tableName
	fr.Columns = headers
	fr.RowsImported = len(rows)
	p.log.InfoContext(ctx, "file ingested",
		"file", name, "table", tableName, "rows", len(rows), "fingerprint", fr.Fingerprint)
	return fr
}

// parseTabular sniffs the delimiter and decodes the file into a
// normalized header plus data rows.
func parseTabular(data []byte) ([]string, [][]string, error) {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	delim := SniffDelimiter(string(firstLine))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, qerrors.NewIngestionError(qerrors.CodeUnsupportedFile,
			"could not parse file as delimited text", err)
	}
	if len(records) == 0 || HeaderIsEmpty(records[0]) {
		return nil, nil, qerrors.NewIngestionError(qerrors.CodeEmptyHeader,
			"file has no usable header row", nil)
	}

	return NormalizeHeaders(records[0]), records[1:], nil
}

// inferColumns classifies every column from its name and the first
// sampled data rows.
func inferColumns(headers []string, rows [][]string) []Class {
	classes := make([]Class, len(headers))
	for col := range headers {
		samples := make([]string, 0, sampleSize)
		for _, row := range rows {
			if len(samples) == sampleSize {
				break
			}
			if col < len(row) {
				samples = append(samples, row[col])
			}
		}
		classes[col] = InferClass(headers[col], samples)
	}
	return classes
}

// materialize replaces the target table with freshly converted rows.
// Runs inside the batch's replace lock; the drop and the load share one
// transaction so readers never see a half-loaded table.
func (p *Pipeline) materialize(ctx context.Context, tableName string, headers []string, classes []Class, rows [][]string) error {
	tx, err := p.store.Write().BeginTx(ctx, nil)
	if err != nil {
		return qerrors.NewIngestionError(qerrors.CodeMaterializeFail, "could not begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, tableName)); err != nil {
		return qerrors.NewIngestionError(qerrors.CodeMaterializeFail,
			fmt.Sprintf("could not replace table %s", tableName), err)
	}

	colDefs := make([]string, len(headers))
	for i, h := range headers {
		colDefs[i] = fmt.Sprintf(`"%s" %s`, h, classes[i].StorageType())
	}
	createSQL := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, tableName, strings.Join(colDefs, ", "))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return qerrors.NewIngestionError(qerrors.CodeMaterializeFail,
			fmt.Sprintf("could not create table %s", tableName), err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(headers)), ", ")
	insertSQL := fmt.Sprintf(`INSERT INTO "%s" VALUES (%s)`, tableName, placeholders)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return qerrors.NewIngestionError(qerrors.CodeMaterializeFail,
			fmt.Sprintf("could not prepare insert for %s", tableName), err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(headers))
	for _, row := range rows {
		for col := range headers {
			var raw string
			if col < len(row) {
				raw = row[col]
			}
			v, ok := CleanValue(raw)
			if !ok {
				args[col] = nil
				continue
			}
			args[col] = classes[col].convert(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return qerrors.NewIngestionError(qerrors.CodeMaterializeFail,
				fmt.Sprintf("could not load rows into %s", tableName), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return qerrors.NewIngestionError(qerrors.CodeMaterializeFail,
			fmt.Sprintf("could not commit table %s", tableName), err)
	}
	return nil
}

// archiveUpload stores the snappy-compressed raw file in object storage.
// Archival failures are logged, never fatal: the table is already live.
func (p *Pipeline) archiveUpload(ctx context.Context, batchID, name string, data []byte) {
	if p.archive == nil {
		return
	}

	key := fmt.Sprintf("uploads/%s/%s.sz", batchID, name)
	compressed := snappy.Encode(nil, data)
	if err := p.archive.Put(ctx, key, bytes.NewReader(compressed)); err != nil {
		p.log.WarnContext(ctx, "upload archival failed", "key", key, "error", err)
		return
	}
	p.log.DebugContext(ctx, "upload archived",
		"key", key, "raw_bytes", len(data), "stored_bytes", len(compressed))
}

// fingerprint returns the 128-bit murmur3 hash of the raw file as hex.
func fingerprint(data []byte) string {
	h1, h2 := murmur3.Sum128(data)
	return fmt.Sprintf("%016x%016x", h1, h2)
}
