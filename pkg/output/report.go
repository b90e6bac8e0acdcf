package output

import (
	"fmt"
	"os"

	"github.com/sdejongh/foldermirror/pkg/models"
)

// WriteCycleReport writes a cycle report to a file.
// Format can be "human" or "json".
func WriteCycleReport(report *models.CycleReport, path string, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	switch format {
	case "json":
		err = encodeJSON(file, ToJSONReport(report))
	default:
		fmt.Fprintf(file, "Cycle %s started %s\n", report.CycleID, report.StartTime.Format("2006-01-02 15:04:05"))
		err = writeSummary(file, report)
		if err == nil {
			err = writeOutcomes(file, report)
		}
	}

	if cerr := file.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

func writeOutcomes(f *os.File, report *models.CycleReport) error {
	if len(report.Outcomes) == 0 {
		_, err := fmt.Fprintf(f, "\nNo changes.\n")
		return err
	}

	fmt.Fprintf(f, "\nActions (%d):\n", len(report.Outcomes))
	for _, o := range report.Outcomes {
		mark := "ok"
		if o.Failed() {
			mark = "FAILED"
		} else if o.DryRun {
			mark = "planned"
		}
		if _, err := fmt.Fprintf(f, "  %-6s %-4s %-7s %s\n", o.Action, o.Kind, mark, displayPath(o.Path)); err != nil {
			return err
		}
	}
	return nil
}
