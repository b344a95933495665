package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sustainfire/internal/dashboard"
)

var scoreCmd = &cobra.Command{
	Use:   "score <path>",
	Short: "Score a dataset and print the preview, predictions and histogram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := initPipeline(cfg).Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return formatResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

// formatResult prints a render cycle in the same order as the dashboard page.
func formatResult(out io.Writer, res *dashboard.Result) error {
	if !res.ModelLoaded {
		_, _ = fmt.Fprintln(out, "warning: no saved model found, using random predictions")
	}

	switch res.State {
	case dashboard.InputIdle:
		return eris.New("score: a path is required")
	case dashboard.InputMissing:
		return eris.Errorf("score: invalid path %q", res.Path)
	}

	_, _ = fmt.Fprintf(out, "Loaded %d features from %s\n\n", res.Rows, res.Path)

	_, _ = fmt.Fprintln(out, "Sample of the data")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\t"+strings.Join(res.Preview.Columns, "\t"))
	for i, row := range res.Preview.Rows {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i, strings.Join(row, "\t"))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out, "\nPredictions")
	for i, l := range res.Predictions {
		_, _ = fmt.Fprintf(out, "%d  %d\n", i, l)
	}

	_, _ = fmt.Fprintf(out, "\nRisk Level Map\n%s (%s), centre %.6f, %.6f\n",
		res.Map.Kind, res.Map.GeomType, res.CenterLat, res.CenterLon)

	_, _ = fmt.Fprintln(out, "\nRisk Level Distribution")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LEVEL\tCOUNT")
	_, _ = fmt.Fprintln(w, "-----\t-----")
	for _, b := range res.Summary {
		_, _ = fmt.Fprintf(w, "%d\t%d\n", b.Level, b.Count)
	}
	return w.Flush()
}
