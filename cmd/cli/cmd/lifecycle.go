package cmd

import (
	"github.com/spf13/cobra"
)

// The lifecycle commands share a shape: one job id argument, one POST to the
// controller, print the confirmation.
func newCommandCmd(use, short, command string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [job_id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := newClientFromConfig()

			resp, err := client.Command(args[0], command)
			if err != nil {
				cmd.Printf("%sFailed to %s job:%s %v\n", colorRed, command, colorReset, err)
				return
			}

			cmd.Printf("%s✓%s %s\n", colorGreen, colorReset, resp.Message)
		},
	}
}

var deleteCmd = &cobra.Command{
	Use:   "delete [job_id]",
	Short: "Delete a simulation job and clean up its generated content",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		resp, err := client.DeleteJob(args[0])
		if err != nil {
			cmd.Printf("%sFailed to delete job:%s %v\n", colorRed, colorReset, err)
			return
		}

		cmd.Printf("%s✓%s %s\n", colorGreen, colorReset, resp.Message)
	},
}

func init() {
	rootCmd.AddCommand(newCommandCmd("pause", "Pause activity generation for a job", "pause"))
	rootCmd.AddCommand(newCommandCmd("resume", "Resume a paused job", "resume"))
	rootCmd.AddCommand(newCommandCmd("stop", "Stop a job permanently", "stop"))
	rootCmd.AddCommand(newCommandCmd("generate", "Trigger one activity immediately", "generate"))
	rootCmd.AddCommand(deleteCmd)
}
