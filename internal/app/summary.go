package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/graph"
)

// writeSummary renders qg as a per-task table or as the full JSON document.
func writeSummary(w io.Writer, format string, qg *graph.QuantumGraph) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(qg)
	}

	tasks := qg.Tasks()
	fmt.Fprintf(w, "Quantum graph: %d tasks, %d quanta\n\n", len(tasks), qg.QuantaCount())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tCLASS\tQUANTA\tUPSTREAM")
	for _, tn := range tasks {
		upstream, err := qg.UpstreamTasks(tn.Task.Label)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", tn.Task.Label, tn.Task.TaskName, len(tn.Quanta), listOrDash(upstream))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	order, err := qg.TaskOrder()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTask order: %s\n", listOrDash(order))
	fmt.Fprintf(w, "Input dataset types: %s\n", listOrDash(dataset.TypeNames(qg.InputDatasetTypes())))
	fmt.Fprintf(w, "Output dataset types: %s\n", listOrDash(dataset.TypeNames(qg.OutputDatasetTypes())))
	fmt.Fprintf(w, "Init inputs: %s\n", listOrDash(refStrings(qg.InitInputs())))
	_, err = fmt.Fprintf(w, "Init outputs: %s\n", listOrDash(refStrings(qg.InitOutputs())))
	return err
}

func refStrings(refs []dataset.DatasetRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
