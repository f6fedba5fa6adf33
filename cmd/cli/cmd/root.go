package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "simctl",
	Short: "Simctl is a command line tool for driving the simplane activity engine",
	Long: `simctl is the command-line interface for simplane, the continuous activity
simulation engine. Simplane jobs populate external platforms (or a local
synthetic world) with realistic, human-paced project activity: work items
move through their lifecycle, comments accumulate, blockers appear and
resolve, all following configurable working-hours rhythms.

Common workflows:

  Start a simulation job:
    simctl start --name "acme demo" --industry healthcare --activity-level high

  List jobs:
    simctl list

  Inspect one job:
    simctl status <job-id>
    simctl activity <job-id>

  Control the lifecycle:
    simctl pause <job-id>
    simctl resume <job-id>
    simctl stop <job-id>
    simctl delete <job-id>

  Force an activity right now (demo prep):
    simctl generate <job-id>

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    SIMPLANE_API_URL    API endpoint (default: http://localhost:6161)
    SIMPLANE_TOKEN      API token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".simctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".simctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SIMPLANE_VARNAME"
	viper.SetEnvPrefix("SIMPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.simctl.yaml)")

	rootCmd.PersistentFlags().String("api-url", "http://localhost:6161", "Simplane Controller URL")
	viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func newClientFromConfig() *JobClient {
	return NewJobClient(viper.GetString("api_url"), viper.GetString("token"))
}
