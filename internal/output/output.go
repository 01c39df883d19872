// Package output renders sync plans for humans and machines.
package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/openmined/syftmirror/internal/synclogic"
	"github.com/openmined/syftmirror/internal/update"
	"gopkg.in/yaml.v3"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"

	labelWidth = 14
)

var (
	green  = color.New(color.FgHiGreen).SprintFunc()
	cyan   = color.New(color.FgHiCyan).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// Plan is the machine readable form of a drained plan.
type Plan struct {
	Operations []*synclogic.SyncOperation `json:"operations" yaml:"operations"`
	Unchanged  int                        `json:"unchanged" yaml:"unchanged"`
	Ignored    []string                   `json:"ignored,omitempty" yaml:"ignored,omitempty"`
}

func NewPlan(ops *synclogic.ReconcileOperations) *Plan {
	ignored := ops.Ignored.ToSlice()
	sort.Strings(ignored)
	return &Plan{
		Operations: ops.Operations(),
		Unchanged:  ops.Unchanged.Cardinality(),
		Ignored:    ignored,
	}
}

// Write renders ops to w in the given format.
func Write(w io.Writer, format string, ops *synclogic.ReconcileOperations) error {
	switch format {
	case FormatJSON:
		data, err := jsonMarshalIndent(NewPlan(ops), "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewPlan(ops)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return writeText(w, ops)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, ops *synclogic.ReconcileOperations) error {
	if !ops.HasChanges() {
		_, err := fmt.Fprintf(w, "%s (%d unchanged, %d ignored)\n",
			green("in sync"), ops.Unchanged.Cardinality(), ops.Ignored.Cardinality())
		return err
	}

	for _, op := range ops.Operations() {
		src := op.Local
		if op.Type == synclogic.OpWriteLocal || op.Type == synclogic.OpDeleteLocal {
			src = op.Remote
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", label(op.Type), op.Path, faint(describe(src))); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d operations (%d unchanged, %d ignored)\n",
		ops.Len(), ops.Unchanged.Cardinality(), ops.Ignored.Cardinality())
	return err
}

// label pads before coloring so escape codes do not shift the path column.
func label(op synclogic.OpType) string {
	pad := func(s string) string { return fmt.Sprintf("%-*s", labelWidth, s) }
	switch op {
	case synclogic.OpWriteRemote:
		return green(pad("push"))
	case synclogic.OpWriteLocal:
		return cyan(pad("pull"))
	case synclogic.OpDeleteRemote:
		return red(pad("delete remote"))
	case synclogic.OpDeleteLocal:
		return yellow(pad("delete local"))
	default:
		return pad(string(op))
	}
}

func describe(u *update.Update) string {
	if u == nil {
		return ""
	}
	desc := update.TypeOf(u).String()
	if u.Symlink != "" {
		desc += " -> " + u.Symlink
	}
	if u.ModTime > 0 {
		desc += ", modified " + humanize.Time(time.UnixMilli(u.ModTime))
	}
	return "(" + desc + ")"
}
