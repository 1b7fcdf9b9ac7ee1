// Package store persists scrape results as append-only flat files: a
// pipe-delimited text log, a CSV, and a processed-set file that makes runs
// resumable. Nothing is ever rewritten or deleted.
package store

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

type Store struct {
	mu        sync.Mutex
	txt       *os.File
	csvFile   *os.File
	csvW      *csv.Writer
	progress  *os.File
	processed mapset.Set[string]
	rows      int
	logger    *slog.Logger
}

// Open opens (creating if needed) the three output files in append mode,
// loads the processed set, and writes the CSV header when the CSV file is
// empty.
func Open(txtPath, csvPath, progressPath string) (*Store, error) {
	processed, err := loadProcessed(progressPath)
	if err != nil {
		return nil, err
	}

	txt, err := openAppend(txtPath)
	if err != nil {
		return nil, err
	}

	csvFile, err := openAppend(csvPath)
	if err != nil {
		txt.Close()
		return nil, err
	}

	progress, err := openAppend(progressPath)
	if err != nil {
		txt.Close()
		csvFile.Close()
		return nil, err
	}

	s := &Store{
		txt:       txt,
		csvFile:   csvFile,
		csvW:      csv.NewWriter(csvFile),
		progress:  progress,
		processed: processed,
		logger:    slog.Default().With("component", "store"),
	}

	info, err := csvFile.Stat()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to stat csv file: %w", err)
	}
	if info.Size() == 0 {
		if err := s.writeCSVRow(CSVHeader); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.logger.Info("store opened", "already_processed", processed.Cardinality())
	return s, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func loadProcessed(path string) (mapset.Set[string], error) {
	set := mapset.NewThreadUnsafeSet[string]()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("failed to open processed set: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			set.Add(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read processed set: %w", err)
	}

	return set, nil
}

// IsProcessed reports whether an asset URL was handled in this or any
// earlier run.
func (s *Store) IsProcessed(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed.Contains(link)
}

// ProcessedCount returns the size of the processed set.
func (s *Store) ProcessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed.Cardinality()
}

// RowsWritten returns the number of data rows appended during this run.
func (s *Store) RowsWritten() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Record appends all output rows for an asset, syncs them to disk, and only
// then appends the processed marker. A crash in between duplicates rows on
// the next run; it never loses an asset.
func (s *Store) Record(res *models.AssetResult) ([]Row, error) {
	rows := BuildRows(res)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if _, err := fmt.Fprintln(s.txt, row.Text); err != nil {
			return rows, fmt.Errorf("failed to append text row: %w", err)
		}
		if err := s.writeCSVRow(row.CSV); err != nil {
			return rows, err
		}
	}

	if err := s.txt.Sync(); err != nil {
		return rows, fmt.Errorf("failed to sync text file: %w", err)
	}
	if err := s.csvFile.Sync(); err != nil {
		return rows, fmt.Errorf("failed to sync csv file: %w", err)
	}

	s.rows += len(rows)

	if err := s.markProcessed(res.URL); err != nil {
		return rows, err
	}

	return rows, nil
}

func (s *Store) writeCSVRow(record []string) error {
	if err := s.csvW.Write(record); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.csvW.Flush()
	if err := s.csvW.Error(); err != nil {
		return fmt.Errorf("failed to flush csv row: %w", err)
	}
	return nil
}

func (s *Store) markProcessed(link string) error {
	if _, err := fmt.Fprintln(s.progress, link); err != nil {
		return fmt.Errorf("failed to append processed marker: %w", err)
	}
	if err := s.progress.Sync(); err != nil {
		return fmt.Errorf("failed to sync processed set: %w", err)
	}

	s.processed.Add(link)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	s.csvW.Flush()
	if err := s.csvW.Error(); err != nil {
		errs = append(errs, err)
	}

	for _, f := range []*os.File{s.txt, s.csvFile, s.progress} {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
