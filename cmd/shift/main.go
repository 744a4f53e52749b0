// Package main provides the shift toolkit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shift-ml/shift/harness"
)

const version = "0.3.1"

// appendEnvDocs adds launcher environment variable documentation to a
// command's usage text.
func appendEnvDocs(cmd *cobra.Command, envs []harness.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI creates the root command with all subcommands attached.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "shift",
		Short:         "Distribution-shift experiment toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Printf("shift version %s\n", version)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	validateCmd := newValidateCmd()
	envCmd := newEnvCmd()
	inspectCmd := newInspectCmd()
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shift version %s\n", version)
		},
	}

	envVars := harness.EnvVars()
	appendEnvDocs(envCmd, []harness.EnvVar{
		envVars["RANK"],
		envVars["WORLD_SIZE"],
		envVars["SLURM_NODEID"],
		envVars["SLURM_NTASKS"],
	})
	appendEnvDocs(validateCmd, []harness.EnvVar{
		envVars["WORLD_SIZE"],
		envVars["SLURM_NTASKS"],
	})

	rootCmd.AddCommand(
		validateCmd,
		envCmd,
		inspectCmd,
		versionCmd,
	)

	return rootCmd
}

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
