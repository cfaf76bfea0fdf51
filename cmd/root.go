package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dSM/cmd/perf"
	"github.com/ValentinKolb/dSM/cmd/serve"
	"github.com/ValentinKolb/dSM/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.2.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dsm",
		Short: "replicated shared in-memory map",
		Long: fmt.Sprintf(`dSM (v%s)

A replicated shared in-memory map written in Go. Local writes are
propagated fire-and-forget over a socket to remote nodes, which apply
them to their own map and can mirror them into external stores.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dSM",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dSM v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
