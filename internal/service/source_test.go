package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "Etapa,Serviço,Progresso,Início,Término,Fornecedor,Status\n" +
	"Muro divisa,Finalizar alvenaria,\"70,25\",2026-02-20,2026-03-06,Sérgio,Alto risco\n" +
	"\n" +
	"Piscina,Hidráulica,0,2026-03-08,2026-03-26,Sérgio,baixo risco\n"

func csvServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCSVLoader_Success(t *testing.T) {
	srv := csvServer(t, http.StatusOK, sampleCSV)

	rows, err := NewCSVLoader(srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank line must be skipped")

	assert.Equal(t, []string{"Etapa", "Serviço", "Progresso", "Início", "Término", "Fornecedor", "Status"}, rows[0].Keys())
	assert.Equal(t, "70,25", rows[0][2].Value)
	assert.Equal(t, "Piscina", rows[1][0].Value)
}

func TestLoadCSV_HeaderPreserved(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "\xEF\xBB\xBF  Data Início ,STATUS\n2026-02-20,Alto\n")

	rows, err := LoadCSV(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"  Data Início ", "STATUS"}, rows[0].Keys())
}

func TestCSVLoader_HeaderOnlyIsEmptySource(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "Etapa,Serviço,Progresso\n\n")

	_, err := NewCSVLoader(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, EmptySource, KindOf(err))
	assert.True(t, errors.Is(err, ErrEmptySource))
}

func TestCSVLoader_EmptyBodyIsEmptySource(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "")

	_, err := NewCSVLoader(srv.URL).Load(context.Background())
	assert.Equal(t, EmptySource, KindOf(err))
}

func TestCSVLoader_BadStatusIsTransportError(t *testing.T) {
	srv := csvServer(t, http.StatusNotFound, "not found")

	_, err := NewCSVLoader(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, TransportError, KindOf(err))
	assert.Contains(t, err.Error(), "404")
}

func TestCSVLoader_UnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewCSVLoader(url).Load(context.Background())
	assert.Equal(t, TransportError, KindOf(err))
}

func TestCSVLoader_MalformedIsParseError(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "Etapa,Status\nMuro \"divisa,Alto\n")

	_, err := NewCSVLoader(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, ParseError, KindOf(err))
}

func TestCSVLoader_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	l := NewCSVLoader(srv.URL)
	l.Timeout = 50 * time.Millisecond

	_, err := l.Load(context.Background())
	assert.Equal(t, TransportError, KindOf(err))
}

func TestCSVLoader_BodyLimit(t *testing.T) {
	srv := csvServer(t, http.StatusOK, "Etapa\n"+strings.Repeat("x\n", 100))

	l := NewCSVLoader(srv.URL)
	l.MaxBodyBytes = 20

	_, err := l.Load(context.Background())
	assert.Equal(t, TransportError, KindOf(err))
	assert.Contains(t, err.Error(), "exceeds")
}

func TestCSVLoader_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relatorio.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	rows, err := NewCSVLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = NewCSVLoader("file://" + path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = NewCSVLoader(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	assert.Equal(t, TransportError, KindOf(err))
}

func TestParseCSV_RaggedRows(t *testing.T) {
	rows, err := ParseCSV([]byte("Etapa,Serviço,Status\nPiscina\nMóveis,Mobilias,Alto,extra\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Etapa"}, rows[0].Keys())
	assert.Equal(t, []string{"Etapa", "Serviço", "Status"}, rows[1].Keys())
}

func TestCSVLoader_Describe(t *testing.T) {
	assert.Equal(t, "csv:docs.google.com", NewCSVLoader("https://docs.google.com/spreadsheets/d/x/pub?output=csv").Describe())
	assert.Equal(t, "csv:file", NewCSVLoader("/tmp/relatorio.csv").Describe())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))

	wrapped := &LoadError{Kind: ParseError, Err: errors.New("bad quote")}
	assert.Equal(t, ParseError, KindOf(wrapped))
	assert.Equal(t, "parse error: bad quote", wrapped.Error())
}
