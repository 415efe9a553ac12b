package fluxmaps

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportRows = []MacroResult{
	{EMin: 100, EMax: 400, EMean: 200, Flux: 1.234e-7, FluxErr: 5e-9, CN: 3.2e-15, FSky: 0.5,
		Fore: &ForeSummary{N: 1.01, NLow: 0.99, NHigh: 1.03, C: 2e-7, CLow: 1.9e-7, CHigh: 2.1e-7}},
	{EMin: 400, EMax: 800, EMean: 565.69, Flux: 2e-8, FluxErr: 1e-9, CN: 1e-16, FSky: 0.5,
		Fore: &ForeSummary{N: 0.98, NLow: 0.9, NHigh: 1.1, C: 1e-8, CLow: 5e-9, CHigh: 1.5e-8}},
}

func TestFormatReport_Schema(t *testing.T) {
	tests := []struct {
		foreSub bool
		nfields int
		header  string
	}{
		{true, 13, "#\tE_MIN\tE_MAX\tE_MEAN\tF_MEAN\tFERR_MEAN\tCN\tFSKY\tFORE_N\tFORE_N_errsx\tFORE_N_errdx\tFORE_C\tFORE_C_errsx\tFORE_C_errdx"},
		{false, 7, "#\tE_MIN\tE_MAX\tE_MEAN\tF_MEAN\tFERR_MEAN\tCN\tFSKY"},
	}
	for _, tt := range tests {
		buf := bytes.Buffer{}
		require.NoError(t, FormatReport(&buf, reportRows, tt.foreSub))

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, tt.header, lines[0])
		for _, l := range lines[1:] {
			assert.Len(t, strings.Split(l, "\t"), tt.nfields, l)
		}
	}

	buf := bytes.Buffer{}
	require.NoError(t, FormatReport(&buf, reportRows[:1], true))
	assert.Equal(t, "100.00\t400.00\t200.00\t1.23e-07\t5.00e-09\t3.20e-15\t0.50\t1.01\t0.99\t1.03\t2.00e-07\t1.90e-07\t2.10e-07\n",
		strings.SplitN(buf.String(), "\n", 2)[1])
}

func TestFormatReport_NeedsForeSummary(t *testing.T) {
	buf := bytes.Buffer{}
	assert.Error(t, FormatReport(&buf, []MacroResult{{EMin: 1, EMax: 2}}, true))
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "P8_gp30_2bins_datafluxmaps.txt")
	assert.False(t, ReportExists(path))

	require.NoError(t, WriteReport(path, reportRows, false))
	assert.True(t, ReportExists(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(b), "\n"))

	err = WriteReport(path, reportRows[:1], true)
	assert.ErrorIs(t, err, ErrReportExists)
	b2, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, b, b2)

	// A row that can't be written leaves no file behind
	bad := filepath.Join(t.TempDir(), "bad.txt")
	assert.Error(t, WriteReport(bad, []MacroResult{{}}, true))
	assert.False(t, ReportExists(bad))
}
