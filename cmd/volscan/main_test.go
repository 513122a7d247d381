package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"volscan/internal/config"
	apperrors "volscan/internal/errors"
	"volscan/internal/files"
	"volscan/internal/infrastructure"
)

// quiet keeps logs out of test output and isolates the run from the caller's env
func quiet(t *testing.T) {
	t.Helper()
	t.Setenv("VOLSCAN_LOGGING_LEVEL", "error")
}

// freshLogger lets each run install its own global logger and restores the slog default afterwards
func freshLogger(t *testing.T) {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	prev := slog.Default()
	t.Cleanup(func() {
		infrastructure.ResetLoggerForTesting()
		slog.SetDefault(prev)
	})
}

func writeTrades(t *testing.T, dir string, prices map[string][]string) {
	t.Helper()
	for name, values := range prices {
		var b strings.Builder
		b.WriteString("SECID,TRADETIME,PRICE,QUANTITY\n")
		for i, v := range values {
			b.WriteString(name + ",10:00:0" + string(rune('0'+i)) + "," + v + ",1\n")
		}
		path := filepath.Join(dir, name+".csv")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	}
}

func sampleTrades(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTrades(t, dir, map[string][]string{
		"TICKER_A": {"90", "110"},
		"TICKER_B": {"95", "100", "105"},
		"TICKER_C": {"99", "101"},
		"TICKER_D": {"100", "100", "100"},
	})
	writeTrades(t, filepath.Join(dir, "nested"), map[string][]string{
		"TICKER_E": {"48", "50", "52"},
	})
	return dir
}

const sampleReport = "Maximum volatility:\n" +
	"TICKER_A - 20.00 %\n" +
	"TICKER_B - 10.00 %\n" +
	"TICKER_E - 8.00 %\n" +
	"Minimum volatility:\n" +
	"TICKER_B - 10.00 %\n" +
	"TICKER_E - 8.00 %\n" +
	"TICKER_C - 2.00 %\n" +
	"Zero-volatility tickers:\n" +
	"TICKER_D\n"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	freshLogger(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunReport(t *testing.T) {
	quiet(t)
	dir := sampleTrades(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "long flags", args: []string{"-path", dir, "-workers", "2"}},
		{name: "short flags", args: []string{"-p", dir, "-w", "4"}},
		{name: "process alias", args: []string{"--path", dir, "--process", "2"}},
		{name: "process shorthand", args: []string{"-p", dir, "-f", "2"}},
		{name: "positional", args: []string{dir, "3"}},
		{name: "more workers than files", args: []string{"-path", dir, "-workers", "16"}},
		{name: "poll mode", args: []string{"-path", dir, "-workers", "2", "-drain", "poll", "-receive-timeout", "20ms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			require.Equal(t, apperrors.ExitOK, code, stderr)
			assert.Equal(t, sampleReport, stdout)
			assert.Contains(t, stderr, "finished in")
		})
	}
}

func TestRunExitCodes(t *testing.T) {
	quiet(t)

	badParse := t.TempDir()
	writeTrades(t, badParse, map[string][]string{
		"GOOD": {"1", "2"},
		"BAD":  {"1", "two"},
	})

	empty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(empty, "HEADER_ONLY.csv"), []byte("a,b,c\n"), 0644))

	dupes := t.TempDir()
	writeTrades(t, filepath.Join(dupes, "2019"), map[string][]string{"SAME": {"1", "2"}})
	writeTrades(t, filepath.Join(dupes, "2020"), map[string][]string{"SAME": {"3", "4"}})

	tests := []struct {
		name     string
		args     []string
		want     int
		contains string
	}{
		{name: "missing directory", args: []string{"-path", filepath.Join(t.TempDir(), "gone"), "-workers", "2"}, want: apperrors.ExitDirectoryMissing, contains: "gone"},
		{name: "parse error", args: []string{"-path", badParse, "-workers", "2"}, want: apperrors.ExitInvalidInput, contains: "BAD.csv"},
		{name: "empty series", args: []string{"-path", empty, "-workers", "1"}, want: apperrors.ExitInvalidInput, contains: "HEADER_ONLY.csv"},
		{name: "duplicate instrument", args: []string{"-path", dupes, "-workers", "2"}, want: apperrors.ExitConsistency, contains: "SAME"},
		{name: "zero workers", args: []string{"-path", badParse, "-workers", "0"}, want: apperrors.ExitUsage},
		{name: "no directory", args: []string{"-workers", "2"}, want: apperrors.ExitUsage, contains: "directory is required"},
		{name: "bad drain mode", args: []string{"-path", badParse, "-drain", "spin"}, want: apperrors.ExitUsage},
		{name: "unknown flag", args: []string{"-frobnicate"}, want: apperrors.ExitUsage},
		{name: "non numeric positional workers", args: []string{badParse, "many"}, want: apperrors.ExitUsage, contains: "many"},
		{name: "too many positionals", args: []string{badParse, "2", "extra"}, want: apperrors.ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.want, code, stderr)
			assert.Empty(t, stdout)
			if tt.contains != "" {
				assert.Contains(t, stderr, tt.contains)
			}
		})
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, apperrors.ExitOK, code)
	assert.Equal(t, config.AppName+" "+config.AppVersion+"\n", stdout)
}

func TestRunHelp(t *testing.T) {
	code, _, stderr := runCLI(t, "-h")
	assert.Equal(t, apperrors.ExitOK, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestFlagsOverrideConfig(t *testing.T) {
	quiet(t)
	dir := sampleTrades(t)

	cfgPath := filepath.Join(t.TempDir(), "volscan.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"scan:\n  root: /does/not/exist\n  workers: 1\n  price_column: 5\n"), 0644))

	// file alone points at a missing directory
	code, _, _ := runCLI(t, "-config", cfgPath)
	assert.Equal(t, apperrors.ExitDirectoryMissing, code)

	// env beats the file, flags beat both
	t.Setenv("VOLSCAN_SCAN_ROOT", dir)
	code, _, stderr := runCLI(t, "-config", cfgPath)
	assert.Equal(t, apperrors.ExitInvalidInput, code, stderr)

	code, stdout, stderr := runCLI(t, "-config", cfgPath, "-column", "2")
	require.Equal(t, apperrors.ExitOK, code, stderr)
	assert.Equal(t, sampleReport, stdout)
}

func TestRunExportAndRecord(t *testing.T) {
	quiet(t)
	dir := sampleTrades(t)
	out := t.TempDir()
	jsonPath := filepath.Join(out, "reports", "ranking.json")
	dbPath := filepath.Join(out, "history.sqlite")

	code, stdout, stderr := runCLI(t, "-path", dir, "-workers", "3", "-out", jsonPath, "-db", dbPath)
	require.Equal(t, apperrors.ExitOK, code, stderr)
	assert.Equal(t, sampleReport, stdout)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "ranked")
	assert.Contains(t, doc, "zero")

	// a failing run is recorded as well
	bad := t.TempDir()
	writeTrades(t, bad, map[string][]string{"BAD": {"1", "two"}})
	code, _, _ = runCLI(t, "-path", bad, "-db", dbPath)
	assert.Equal(t, apperrors.ExitInvalidInput, code)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var ok, failed int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs WHERE status = 'ok'`).Scan(&ok))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs WHERE status = 'failed'`).Scan(&failed))
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)

	var instruments int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM instrument_volatility`).Scan(&instruments))
	assert.Equal(t, 5, instruments)
}

func TestRunCancelled(t *testing.T) {
	quiet(t)
	dir := sampleTrades(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	freshLogger(t)
	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() { done <- run(ctx, []string{"-path", dir, "-workers", "2"}, &stdout, &stderr) }()

	select {
	case code := <-done:
		assert.NotEqual(t, apperrors.ExitOK, code)
		assert.Empty(t, stdout.String())
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRunMissingRootHasNoSideEffects(t *testing.T) {
	quiet(t)
	out := t.TempDir()
	dbPath := filepath.Join(out, "db", "history.sqlite")
	jsonPath := filepath.Join(out, "ranking.json")

	code, stdout, stderr := runCLI(t, "-path", filepath.Join(out, "missing"),
		"-workers", "2", "-db", dbPath, "-out", jsonPath, "-metrics-addr", "127.0.0.1:0")
	assert.Equal(t, apperrors.ExitDirectoryMissing, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "missing")
	assert.NotContains(t, stderr, "finished in")

	assert.False(t, files.FileExists(dbPath))
	assert.False(t, files.FileExists(jsonPath))
	assert.NoDirExists(t, filepath.Dir(dbPath))
}
