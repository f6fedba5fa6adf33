package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"simplane/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status of a simulation job",
	Long:  `Retrieve detailed status information for a simulation job, including its current state (initializing, running, paused, stopped), world size, generation counters and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		job, err := client.GetJob(args[0])
		if err != nil {
			cmd.Printf("%sFailed to get job:%s %v\n", colorRed, colorReset, err)
			return
		}

		printStatus(cmd, job)
	},
}

func printStatus(cmd *cobra.Command, job *api.JobStatusResponse) {
	// Header with status icon
	icon := statusIcon(job.Status)
	cmd.Printf("%s %s%s%s\n", icon, colorBold, job.Name, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s            %s\n", colorDim, colorReset, job.ID)
	cmd.Printf("%sStatus:%s        %s\n", colorDim, colorReset, colorizeStatus(job.Status))
	cmd.Printf("%sPlatform:%s      %s\n", colorDim, colorReset, job.Platform)
	cmd.Printf("%sIndustry:%s      %s\n", colorDim, colorReset, job.Industry)
	cmd.Printf("%sContainers:%s    %d\n", colorDim, colorReset, job.Containers)
	cmd.Printf("%sWork Items:%s    %d\n", colorDim, colorReset, job.WorkItems)

	created := job.CreatedAt
	cmd.Printf("%sCreated:%s       %s\n", colorDim, colorReset, formatTimeWithRelative(&created))
	cmd.Printf("%sStarted:%s       %s\n", colorDim, colorReset, formatTimeWithRelative(job.StartedAt))
	cmd.Printf("%sLast Activity:%s %s\n", colorDim, colorReset, formatTimeWithRelative(job.LastActivityAt))

	if job.NextActivityAt != nil {
		until := time.Until(*job.NextActivityAt)
		if until > 0 {
			cmd.Printf("%sNext Activity:%s %s %s(in %s)%s\n", colorDim, colorReset,
				job.NextActivityAt.Format("Mon, 02 Jan 2006 15:04:05 MST"),
				colorCyan, formatDuration(until), colorReset)
		} else {
			cmd.Printf("%sNext Activity:%s %s %s(due)%s\n", colorDim, colorReset,
				job.NextActivityAt.Format("Mon, 02 Jan 2006 15:04:05 MST"),
				colorYellow, colorReset)
		}
	} else {
		cmd.Printf("%sNext Activity:%s -\n", colorDim, colorReset)
	}

	cmd.Printf("\n%sCounters%s\n", colorBold, colorReset)
	cmd.Printf("%sContainers created:%s %d\n", colorDim, colorReset, job.Stats.ContainersCreated)
	cmd.Printf("%sItems created:%s      %d\n", colorDim, colorReset, job.Stats.ItemsCreated)
	cmd.Printf("%sSub-items created:%s  %d\n", colorDim, colorReset, job.Stats.SubItemsCreated)
	cmd.Printf("%sComments added:%s     %d\n", colorDim, colorReset, job.Stats.CommentsAdded)
	cmd.Printf("%sStatus changes:%s     %d\n", colorDim, colorReset, job.Stats.StatusChanges)
	cmd.Printf("%sItems completed:%s    %d\n", colorDim, colorReset, job.Stats.ItemsCompleted)
	if job.Stats.Errors > 0 {
		cmd.Printf("%sErrors:%s             %s%d%s\n", colorDim, colorReset, colorRed, job.Stats.Errors, colorReset)
	} else {
		cmd.Printf("%sErrors:%s             %d\n", colorDim, colorReset, job.Stats.Errors)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "running":
		return colorGreen + "✓" + colorReset
	case "paused":
		return colorYellow + "⏸" + colorReset
	case "stopped":
		return colorRed + "■" + colorReset
	case "initializing":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "running":
		return icon + " " + colorGreen + status + colorReset
	case "paused":
		return icon + " " + colorYellow + status + colorReset
	case "stopped":
		return icon + " " + colorRed + status + colorReset
	case "initializing":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
