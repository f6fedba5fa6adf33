package cmd

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List simulation jobs",
	Long:  `List all simulation jobs, most recently active first. Deleted jobs never appear.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		resp, err := client.ListJobs()
		if err != nil {
			cmd.Printf("%sFailed to list jobs:%s %v\n", colorRed, colorReset, err)
			return
		}

		if len(resp.Jobs) == 0 {
			cmd.Println("No jobs found. Start one with: simctl start")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		cmd.Printf("%s", colorBold)
		w.Write([]byte("ID\tNAME\tPLATFORM\tINDUSTRY\tSTATUS\tLAST ACTIVITY\n"))
		w.Flush()
		cmd.Printf("%s", colorReset)

		for _, job := range resp.Jobs {
			last := "-"
			if job.LastActivityAt != nil {
				last = relativeTime(*job.LastActivityAt) + " ago"
			}
			w.Write([]byte(job.ID + "\t" + job.Name + "\t" + job.Platform + "\t" +
				job.Industry + "\t" + colorizeStatus(job.Status) + "\t" + last + "\n"))
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
