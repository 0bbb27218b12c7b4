package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/volcheck/api/v1alpha1"
	"github.com/jbweber/volcheck/internal/status"
)

// TableFormatter formats reports as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatCheck writes a run summary followed by one row per stage.
func (f *TableFormatter) FormatCheck(vc *v1alpha1.VolumeCheck) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	runDuration := time.Duration(0)
	if !vc.Status.StartTime.IsZero() && !vc.Status.CompletionTime.IsZero() {
		runDuration = vc.Status.CompletionTime.Sub(vc.Status.StartTime.Time)
	}

	_, _ = fmt.Fprintf(w, "Name:\t%s\n", vc.Name)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", orDash(vc.Status.RunID))
	_, _ = fmt.Fprintf(w, "Platform:\t%s\n", orDash(vc.Status.Platform))
	_, _ = fmt.Fprintf(w, "Phase:\t%s\n", orDash(string(vc.Status.Phase)))
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", formatDuration(runDuration))
	if vc.Status.OriginalFingerprint != "" {
		_, _ = fmt.Fprintf(w, "Fingerprint:\t%s\n", vc.Status.OriginalFingerprint)
	}
	if vc.Status.RestoredFingerprint != "" {
		_, _ = fmt.Fprintf(w, "Restored:\t%s\n", vc.Status.RestoredFingerprint)
	}
	_ = w.Flush()

	if len(vc.Status.Stages) == 0 {
		buf.WriteString("\nNo stages run\n")
		return buf.String(), nil
	}

	buf.WriteString("\n")
	w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "STAGE\tPHASE\tDURATION\tRESOURCES\tMESSAGE")
	}
	for i := range vc.Status.Stages {
		st := &vc.Status.Stages[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			st.Name, st.Phase, formatDuration(status.Duration(st)), len(st.Resources), orDash(oneLine(st.Message)))
	}
	_ = w.Flush()

	if len(vc.Status.Conditions) > 0 {
		buf.WriteString("\n")
		w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			_, _ = fmt.Fprintln(w, "CONDITION\tSTATUS\tREASON")
		}
		for _, c := range vc.Status.Conditions {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Type, c.Status, orDash(c.Reason))
		}
		_ = w.Flush()
	}

	return buf.String(), nil
}

// FormatSlots lists the slots in the order they are consumed.
func (f *TableFormatter) FormatSlots(list SlotList) (string, error) {
	if len(list.Slots) == 0 {
		return fmt.Sprintf("No slots for platform %s\n", list.Platform), nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "INDEX\tSLOT")
	}
	for i, slot := range list.Slots {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i, slot)
	}
	_ = w.Flush()
	return buf.String(), nil
}

// FormatDevices lists block devices, marking the ones just removed.
func (f *TableFormatter) FormatDevices(list DeviceList) (string, error) {
	if len(list.Devices) == 0 && len(list.Removed) == 0 {
		return "No block devices found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "DEVICE\tSTATE")
	}
	for _, dev := range list.Devices {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", dev, "present")
	}
	for _, dev := range list.Removed {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", dev, "removed")
	}
	_ = w.Flush()
	return buf.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// oneLine keeps the first line of multi-line command output.
func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// formatDuration formats a duration compactly.
// Examples: "850ms", "5s", "2m30s", "1h5m"
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		if rest := seconds % 60; rest > 0 {
			return fmt.Sprintf("%dm%ds", minutes, rest)
		}
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if rest := minutes % 60; rest > 0 {
		return fmt.Sprintf("%dh%dm", hours, rest)
	}
	return fmt.Sprintf("%dh", hours)
}
