package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/shift-ml/shift/harness"
)

func newValidateCmd() *cobra.Command {
	var kwargPairs []string

	cmd := &cobra.Command{
		Use:   "validate CONFIG",
		Short: "Validate a run configuration and show the resolved settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateHandler(args[0], kwargPairs)
		},
	}

	cmd.Flags().StringArrayVar(&kwargPairs, "kwargs", nil, "extra key=value setting (repeatable)")

	return cmd
}

func validateHandler(path string, kwargPairs []string) error {
	cfg, err := harness.LoadConfig(path)
	if err != nil {
		return err
	}

	kwargs, err := harness.ParseKwargs(kwargPairs)
	if err != nil {
		return err
	}
	if cfg.Kwargs == nil {
		cfg.Kwargs = harness.Kwargs{}
	}
	for key, value := range kwargs {
		cfg.Kwargs[key] = value
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Printf("Method:  %s\n", cfg.Method())
	fmt.Printf("Run dir: %s\n\n", cfg.RunDir())

	var data [][]string
	for _, name := range cfg.Fields() {
		value, err := cfg.Get(name)
		if err != nil {
			return err
		}
		data = append(data, []string{name, fmt.Sprintf("%v", value)})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"FIELD", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
