package fluxmaps

import(
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MacroResult is one row of the report.
type MacroResult struct {
	EMin, EMax, EMean float64
	Flux, FluxErr     float64
	CN                float64 // white-noise term
	FSky              float64
	Fore              *ForeSummary
}

var(
	reportColumns     = []string{"E_MIN", "E_MAX", "E_MEAN", "F_MEAN", "FERR_MEAN", "CN", "FSKY"}
	reportForeColumns = []string{"FORE_N", "FORE_N_errsx", "FORE_N_errdx", "FORE_C", "FORE_C_errsx", "FORE_C_errdx"}
)

func reportHeader(foreSub bool) string {
	cols := reportColumns
	if foreSub {
		cols = append(append([]string{}, reportColumns...), reportForeColumns...)
	}
	s := "#"
	for _, c := range cols {
		s += "\t" + c
	}
	return s + "\n"
}

func (mr MacroResult)reportLine(foreSub bool) (string, error) {
	if !foreSub {
		return fmt.Sprintf("%.2f\t%.2f\t%.2f\t%.2e\t%.2e\t%.2e\t%f\n",
			mr.EMin, mr.EMax, mr.EMean, mr.Flux, mr.FluxErr, mr.CN, mr.FSky), nil
	}
	if mr.Fore == nil {
		return "", fmt.Errorf("report: row [%.2f,%.2f] has no foreground summary", mr.EMin, mr.EMax)
	}
	f := mr.Fore
	return fmt.Sprintf("%.2f\t%.2f\t%.2f\t%.2e\t%.2e\t%.2e\t%.2f\t%.2f\t%.2f\t%.2f\t%.2e\t%.2e\t%.2e\n",
		mr.EMin, mr.EMax, mr.EMean, mr.Flux, mr.FluxErr, mr.CN, mr.FSky,
		f.N, f.NLow, f.NHigh, f.C, f.CLow, f.CHigh), nil
}

// FormatReport writes the header and one line per row, in order.
func FormatReport(w io.Writer, rows []MacroResult, foreSub bool) error {
	if _, err := io.WriteString(w, reportHeader(foreSub)); err != nil {
		return err
	}
	for _, row := range rows {
		line, err := row.reportLine(foreSub)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ReportExists is the guard checked before a run does any work.
func ReportExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteReport creates the report, failing with ErrReportExists if there
// is already a file at path.
func WriteReport(path string, rows []MacroResult, foreSub bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("report dir: %v", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: '%s'", ErrReportExists, path)
	} else if err != nil {
		return fmt.Errorf("create report '%s': %v", path, err)
	}

	w := bufio.NewWriter(f)
	if err := FormatReport(w, rows, foreSub); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write report '%s': %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write report '%s': %v", path, err)
	}
	return f.Close()
}
