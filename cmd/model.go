package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/sustainfire/internal/scorer"
)

var modelPath string

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Model artifact commands",
}

var modelInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the model artifact and print its schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := modelPath
		if path == "" {
			path = cfg.Model.Path
		}

		f, err := scorer.LoadForest(path)
		if err != nil {
			return err
		}
		formatForest(cmd.OutOrStdout(), path, f)
		return nil
	},
}

func init() {
	modelInspectCmd.Flags().StringVar(&modelPath, "path", "", "model artifact (default from config)")
	modelCmd.AddCommand(modelInspectCmd)
	rootCmd.AddCommand(modelCmd)
}

func formatForest(out io.Writer, path string, f *scorer.Forest) {
	var nodes int
	for _, t := range f.Trees {
		nodes += len(t.Nodes)
	}

	features := "(unnamed)"
	if names := f.FeatureNames(); len(names) > 0 {
		features = strings.Join(names, ", ")
	}

	_, _ = fmt.Fprintf(out, "Path:      %s\n", path)
	_, _ = fmt.Fprintf(out, "Name:      %s\n", f.Name)
	_, _ = fmt.Fprintf(out, "Features:  %d %s\n", f.NumFeatures(), features)
	_, _ = fmt.Fprintf(out, "Classes:   %v\n", f.Classes)
	_, _ = fmt.Fprintf(out, "Trees:     %d (%d nodes)\n", len(f.Trees), nodes)
}
