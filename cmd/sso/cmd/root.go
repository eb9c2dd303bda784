package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sso",
	Short: "Decentralized single-sign-on delegation",
	Long: `A single-sign-on server and broker runtime. Independent applications
(brokers) delegate authentication and session state to one central
server without ever holding user credentials or shared secrets in the
clear.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./sso.yaml)")
}
