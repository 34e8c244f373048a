package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/orchestration"
	"github.com/spf13/cobra"
)

var (
	headingColor = color.New(color.FgWhite, color.Bold)
	appliedColor = color.New(color.FgGreen)
	skippedColor = color.New(color.FgHiBlack)
	bandColors   = map[entities.SeverityBand]*color.Color{
		entities.SeverityCritical: color.New(color.FgRed, color.Bold),
		entities.SeverityWarning:  color.New(color.FgYellow),
		entities.SeverityInfo:     color.New(color.FgCyan),
	}
)

func newTraceCmd(opts *rootOptions) *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "trace <incident-id>",
		Short: "Print the decision traces behind an incident's proposed actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			settings, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rt, err := newRuntime(settings, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			view, err := rt.engine.GetIncident(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if view == nil {
				return fmt.Errorf("incident %q not found", args[0])
			}
			traces, err := rt.engine.Traces(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTraces(cmd.OutOrStdout(), view.Incident, traces)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func printTraces(w io.Writer, inc *entities.Incident, traces []orchestration.ProposalTrace) {
	band := entities.SeverityBand("")
	if inc.Severity != nil {
		band = *inc.Severity
	}
	score := "-"
	if inc.SeverityScore != nil {
		score = fmt.Sprintf("%d", *inc.SeverityScore)
	}

	_, _ = headingColor.Fprintf(w, "Incident %s", inc.ID)
	_, _ = fmt.Fprintf(w, "  %s  %s  score %s  ", inc.TypeKey, inc.Status, score)
	if c, ok := bandColors[band]; ok {
		_, _ = c.Fprint(w, band)
	}
	_, _ = fmt.Fprintln(w)

	if len(traces) == 0 {
		_, _ = fmt.Fprintln(w, "  no proposed actions")
		return
	}
	for _, pt := range traces {
		_, _ = fmt.Fprintf(w, "\n  #%d %s action %s\n", pt.Sequence, pt.ActionType, pt.ActionID)
		if pt.Trace == nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "  recorded %s\n", pt.Trace.RecordedAt.UTC().Format(time.RFC3339))
		for _, step := range pt.Trace.Steps {
			c := skippedColor
			if step.Outcome == entities.TraceApplied {
				c = appliedColor
			}
			_, _ = c.Fprintf(w, "    %-8s", step.Outcome)
			_, _ = fmt.Fprintf(w, " %-22s %s\n", step.Rule, describeStep(step.Details))
		}
	}
}

func describeStep(d entities.TraceDetails) string {
	var parts []string
	if d.Score != nil {
		parts = append(parts, fmt.Sprintf("score=%d", *d.Score))
	}
	if d.Band != "" {
		parts = append(parts, "band="+string(d.Band))
	}
	if d.Threshold != nil {
		parts = append(parts, fmt.Sprintf("threshold=%d", *d.Threshold))
	}
	if d.SourceType != "" {
		parts = append(parts, "source="+d.SourceType+":"+d.SourceID)
	}
	if d.SnoozeUntil != nil {
		parts = append(parts, "until="+d.SnoozeUntil.UTC().Format(time.RFC3339))
	}
	if d.ActionType != "" {
		parts = append(parts, "action="+string(d.ActionType))
	}
	if d.ActionKey != "" {
		parts = append(parts, "key="+d.ActionKey)
	}
	if d.Reason != "" {
		parts = append(parts, d.Reason)
	}
	return strings.Join(parts, " ")
}
