package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"obra-dashboard/internal/models"
)

const (
	DefaultFetchTimeout = 15 * time.Second
	DefaultMaxBodyBytes = 10 << 20 // 10MB
)

// ErrorKind classifies why a source could not produce rows.
type ErrorKind string

const (
	TransportError ErrorKind = "transport"
	ParseError     ErrorKind = "parse"
	EmptySource    ErrorKind = "empty_source"
)

// ErrEmptySource is wrapped by every EmptySource LoadError.
var ErrEmptySource = errors.New("source has no data rows")

// LoadError is returned by every Loader failure.
type LoadError struct {
	Kind ErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func transportErr(format string, args ...interface{}) *LoadError {
	return &LoadError{Kind: TransportError, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the LoadError kind carried by err, or "" if there is none.
func KindOf(err error) ErrorKind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// Loader produces the raw rows of one ingestion attempt.
type Loader interface {
	Load(ctx context.Context) ([]models.RawRow, error)
	// Describe names the source for logs and the renderer.
	Describe() string
}

// CSVLoader fetches a published CSV report over HTTP, or from disk when the
// URL is a file:// URL or a plain path.
type CSVLoader struct {
	URL          string
	Client       *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
}

// NewCSVLoader creates a loader with the default timeout and body limit.
func NewCSVLoader(sourceURL string) *CSVLoader {
	return &CSVLoader{
		URL:          sourceURL,
		Client:       &http.Client{},
		Timeout:      DefaultFetchTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

func (l *CSVLoader) Describe() string {
	if u, err := url.Parse(l.URL); err == nil && u.Host != "" {
		return "csv:" + u.Host
	}
	return "csv:file"
}

// Load fetches and parses the report. It never retries.
func (l *CSVLoader) Load(ctx context.Context) ([]models.RawRow, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	raw, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	return ParseCSV(raw)
}

// LoadCSV is a one-shot fetch+parse of sourceURL using client.
func LoadCSV(ctx context.Context, client *http.Client, sourceURL string) ([]models.RawRow, error) {
	l := NewCSVLoader(sourceURL)
	if client != nil {
		l.Client = client
	}
	return l.Load(ctx)
}

func (l *CSVLoader) read(ctx context.Context) ([]byte, error) {
	limit := l.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	if path, ok := localPath(l.URL); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, transportErr("open %s: %w", path, err)
		}
		defer f.Close()
		return readLimited(f, limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, transportErr("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, transportErr("get %s: %w", l.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportErr("unexpected status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, limit)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, transportErr("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, transportErr("body exceeds %d bytes", limit)
	}
	return body, nil
}

func localPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(raw, "://") {
		return "", false
	}
	return raw, raw != ""
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a header line followed by data lines. Blank lines are
// skipped; header names are kept as published.
func ParseCSV(data []byte) ([]models.RawRow, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1 // Allow ragged rows

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Kind: EmptySource, Err: ErrEmptySource}
	}
	if err != nil {
		return nil, &LoadError{Kind: ParseError, Err: fmt.Errorf("read header: %w", err)}
	}

	rows := []models.RawRow{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Kind: ParseError, Err: err}
		}
		rows = append(rows, models.NewRawRow(headers, record))
	}

	if len(rows) == 0 {
		return nil, &LoadError{Kind: EmptySource, Err: ErrEmptySource}
	}
	return rows, nil
}
