// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists execution reports in an embedded BadgerDB.
//
// Reports are stored under their workflow id, plus a start-time index
// so listings come back newest first without scanning every payload.
// The store is write-once per run: the executor saves a report exactly
// when the run terminates and nothing updates it afterward.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/rag2dag/services/rag2dag/datatypes"
)

// Key layout. The time index stores the report key as its value so a
// listing does one indexed scan plus point lookups.
const (
	reportPrefix = "report:"
	timePrefix   = "bytime:"
)

// ErrNotFound is returned when no report exists for a workflow id.
var ErrNotFound = errors.New("execution report not found")

// Config holds configuration for a history store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for the given directory.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests. Data is lost on Close.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a BadgerDB-backed report archive. It implements the
// executor's ReportSink.
//
// # Thread Safety
//
// Store is safe for concurrent use; BadgerDB transactions provide
// isolation between concurrent saves and reads.
type Store struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open creates and opens a history store with the given configuration.
// Creates the directory if it doesn't exist. Caller must Close.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent history store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport writes a report and its time-index entry atomically.
func (s *Store) SaveReport(ctx context.Context, report *datatypes.ExecutionReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if report == nil || report.WorkflowID == "" {
		return errors.New("report must have a workflow id")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", report.WorkflowID, err)
	}

	reportKey := []byte(reportPrefix + report.WorkflowID)
	indexKey := []byte(timeKey(report.StartedAt, report.WorkflowID))

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(reportKey, payload); err != nil {
			return err
		}
		return txn.Set(indexKey, reportKey)
	})
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.WorkflowID, err)
	}
	return nil
}

// GetReport fetches one report by workflow id.
func (s *Store) GetReport(ctx context.Context, workflowID string) (*datatypes.ExecutionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report datatypes.ExecutionReport
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportPrefix + workflowID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, workflowID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns up to limit reports, newest first by run start
// time. A limit <= 0 returns everything.
func (s *Store) ListReports(ctx context.Context, limit int) ([]*datatypes.ExecutionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reports []*datatypes.ExecutionReport
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		iterOpts.Prefix = []byte(timePrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		// Reverse iteration must seek past the last possible index key.
		for it.Seek([]byte(timePrefix + "\xff")); it.Valid(); it.Next() {
			if limit > 0 && len(reports) >= limit {
				break
			}
			var reportKey []byte
			if err := it.Item().Value(func(val []byte) error {
				reportKey = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(reportKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Dangling index entry; skip rather than fail the listing.
				continue
			}
			if err != nil {
				return err
			}
			var report datatypes.ExecutionReport
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &report)
			}); err != nil {
				return err
			}
			reports = append(reports, &report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// timeKey builds a lexically time-ordered index key. RFC3339 with
// fixed-width nanoseconds sorts the same as the timestamps themselves.
func timeKey(t time.Time, workflowID string) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000000000Z")
	return timePrefix + stamp + ":" + strings.ReplaceAll(workflowID, ":", "_")
}
