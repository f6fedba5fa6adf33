package cmd

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var activityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity [job_id]",
	Short: "Show recent activity for a job",
	Long:  `Show the most recent generated activities for a simulation job, newest first.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		resp, err := client.GetActivity(args[0])
		if err != nil {
			cmd.Printf("%sFailed to get activity:%s %v\n", colorRed, colorReset, err)
			return
		}

		if len(resp.Activities) == 0 {
			cmd.Println("No activity recorded yet.")
			return
		}

		entries := resp.Activities
		if activityLimit > 0 && len(entries) > activityLimit {
			entries = entries[:activityLimit]
		}

		for _, entry := range entries {
			line := entry.Timestamp.Format("15:04:05 Jan 02") + "  " +
				colorBold + entry.Action + colorReset
			if len(entry.Details) > 0 {
				line += "  " + colorDim + formatDetails(entry.Details) + colorReset
			}
			cmd.Println(line)
		}
	},
}

func formatDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "Maximum entries to show (0 = all)")
}
