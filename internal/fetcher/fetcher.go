// Package fetcher loads business entity tables from local CSV/XLSX
// files or remote HTTP/FTP locations.
package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote input file to a local path, returning the
// bytes written.
type Fetcher interface {
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Localize resolves an input reference to a local file path. Local
// paths pass through; http(s) and ftp URLs are downloaded into destDir
// first, keeping the remote file name.
func Localize(ctx context.Context, input, destDir string) (string, error) {
	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" {
		return input, nil
	}

	var f Fetcher
	switch u.Scheme {
	case "http", "https":
		f = NewHTTPFetcher(HTTPOptions{})
	case "ftp":
		f = NewFTPFetcher(FTPOptions{})
	default:
		return "", eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", eris.Errorf("fetcher: cannot derive file name from %q", input)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create download dir")
	}

	dest := filepath.Join(destDir, name)
	if _, err := f.DownloadToFile(ctx, input, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ReadTable reads a local CSV or XLSX file into a header row plus data
// rows. The format is chosen by file extension.
func ReadTable(path string) (header []string, rows [][]string, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVFile(path)
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, nil, eris.Errorf("fetcher: unsupported input format %q", filepath.Ext(path))
	}
}
