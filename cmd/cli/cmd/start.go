package cmd

import (
	"github.com/spf13/cobra"

	"simplane/pkg/api"
)

var startFlags api.StartJobRequest

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new simulation job",
	Long: `Start a continuous simulation job. The job bootstraps an initial world of
containers and work items, then generates ongoing activity following the
configured working-hours rhythm until stopped or deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		resp, err := client.StartJob(startFlags)
		if err != nil {
			cmd.Printf("%sFailed to start job:%s %v\n", colorRed, colorReset, err)
			return
		}

		cmd.Printf("%s✓%s Job started\n", colorGreen, colorReset)
		cmd.Printf("%sJob ID:%s %s%s%s\n", colorDim, colorReset, colorBold, resp.JobID, colorReset)
		cmd.Printf("\nTrack it with:\n  simctl status %s\n", resp.JobID)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startFlags.Name, "name", "", "Display name for the job")
	startCmd.Flags().StringVar(&startFlags.Platform, "platform", "", "Target platform (default: synthetic)")
	startCmd.Flags().StringVar(&startFlags.Industry, "industry", "technology", "Industry catalog: technology, healthcare or finance")
	startCmd.Flags().StringVar(&startFlags.ActivityLevel, "activity-level", "medium", "Activity level: low, medium or high")
	startCmd.Flags().StringVar(&startFlags.WorkingHours, "working-hours", "regional", "Working hours profile: regional or global")
	startCmd.Flags().Float64Var(&startFlags.BurstFactor, "burst-factor", 0.5, "Burstiness 0-1 (low = peaked bursts)")
	startCmd.Flags().IntVar(&startFlags.DurationDays, "duration-days", 0, "Stop after this many days (0 = run indefinitely)")
	startCmd.Flags().IntVar(&startFlags.InitialContainers, "initial-containers", 1, "Containers created at bootstrap")
	startCmd.Flags().IntVar(&startFlags.BlockedFrequencyPct, "blocked-frequency", 15, "Percent of items that become blocked")
	startCmd.Flags().IntVar(&startFlags.BlockedDurationDays, "blocked-duration", 2, "Average days an item stays blocked")
	startCmd.Flags().IntVar(&startFlags.ContainerEveryDays, "container-every", 0, "Create a new container every N days (0 = off)")
}
