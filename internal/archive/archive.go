// Package archive stores fetched pages as gzip-compressed HTML under the
// data directory. Pages are archived before they are parsed, so every parse
// is replayable offline.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// PageKind is one of the three per-map page types.
type PageKind string

const (
	KindStats       PageKind = "stats"
	KindPerformance PageKind = "performance"
	KindEconomy     PageKind = "economy"
)

// Archive is the gzip page store rooted at a data directory.
type Archive struct {
	root string
}

// New returns an archive rooted at dataDir, creating it if needed.
func New(dataDir string) (*Archive, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Archive{root: dataDir}, nil
}

// ResultsPath returns the archive path of a results listing page.
func (a *Archive) ResultsPath(offset int) string {
	return filepath.Join(a.root, "results", fmt.Sprintf("offset-%d.html.gz", offset))
}

// OverviewPath returns the archive path of a match overview page.
func (a *Archive) OverviewPath(matchID int64) string {
	return filepath.Join(a.root, "matches", fmt.Sprintf("%d", matchID), "overview.html.gz")
}

// MapPath returns the archive path of a per-map page of the given kind.
func (a *Archive) MapPath(matchID, mapStatsID int64, kind PageKind) string {
	return filepath.Join(a.root, "matches", fmt.Sprintf("%d", matchID),
		fmt.Sprintf("map-%d-%s.html.gz", mapStatsID, kind))
}

// SaveResults archives a results listing page.
func (a *Archive) SaveResults(offset int, html string) error {
	return a.write(a.ResultsPath(offset), html)
}

// SaveOverview archives a match overview page.
func (a *Archive) SaveOverview(matchID int64, html string) error {
	return a.write(a.OverviewPath(matchID), html)
}

// SaveMapPage archives a per-map page of the given kind.
func (a *Archive) SaveMapPage(matchID, mapStatsID int64, kind PageKind, html string) error {
	return a.write(a.MapPath(matchID, mapStatsID, kind), html)
}

// LoadResults reads back an archived results page.
func (a *Archive) LoadResults(offset int) (string, error) {
	return a.read(a.ResultsPath(offset))
}

// LoadOverview reads back an archived overview page.
func (a *Archive) LoadOverview(matchID int64) (string, error) {
	return a.read(a.OverviewPath(matchID))
}

// LoadMapPage reads back an archived per-map page.
func (a *Archive) LoadMapPage(matchID, mapStatsID int64, kind PageKind) (string, error) {
	return a.read(a.MapPath(matchID, mapStatsID, kind))
}

// write gzips html to path atomically: compress to a temp file in the same
// directory, then rename over the target.
func (a *Archive) write(path, html string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.html.gz")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	if _, err := io.WriteString(gz, html); err != nil {
		tmp.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename archive: %w", err)
	}
	return nil
}

func (a *Archive) read(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("read archive header: %w", err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return "", fmt.Errorf("decompress archive: %w", err)
	}
	return string(data), nil
}
