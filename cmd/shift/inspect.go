package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/shift-ml/shift/internal/serialization"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect CHECKPOINT",
		Short: "Show the header and tensor table of a .shift file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectHandler(args[0])
		},
	}
}

func inspectHandler(path string) (err error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	header := reader.Header()

	fmt.Printf("Model type:      %s\n", header.ModelType)
	fmt.Printf("Format version:  %d\n", header.FormatVersion)
	if header.ShiftVersion != "" {
		fmt.Printf("Toolkit version: %s\n", header.ShiftVersion)
	}
	if !header.CreatedAt.IsZero() {
		fmt.Printf("Created:         %s\n", header.CreatedAt.Format(time.RFC3339))
	}

	if len(header.Metadata) > 0 {
		fmt.Println("Metadata:")
		keys := make([]string, 0, len(header.Metadata))
		for key := range header.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("  %s: %s\n", key, header.Metadata[key])
		}
	}

	if meta := header.CheckpointMeta; meta != nil && meta.IsCheckpoint {
		fmt.Println("Checkpoint:")
		fmt.Printf("  Epoch: %d  Step: %d  Loss: %g\n", meta.Epoch, meta.Step, meta.Loss)
		fmt.Printf("  Optimizer: %s%s\n", meta.OptimizerType, formatOptimizerConfig(meta.OptimizerConfig))
	}
	fmt.Println()

	var totalBytes int64
	var data [][]string
	for _, t := range header.Tensors {
		totalBytes += t.Size
		data = append(data, []string{t.Name, t.DType, fmt.Sprintf("%v", t.Shape), humanBytes(t.Size)})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "DTYPE", "SHAPE", "SIZE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Printf("\n%d tensors, %s\n", len(header.Tensors), humanBytes(totalBytes))

	return nil
}

// formatOptimizerConfig renders recorded hyperparameters as " (k=v ...)"
// with sorted keys, or "" when none were recorded.
func formatOptimizerConfig(config map[string]any) string {
	if len(config) == 0 {
		return ""
	}
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := " ("
	for i, key := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", key, config[key])
	}
	return out + ")"
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
