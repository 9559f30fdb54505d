package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			platform := runtime.GOOS + "/" + runtime.GOARCH

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"version":  version,
					"commit":   commit,
					"date":     date,
					"go":       runtime.Version(),
					"platform": platform,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "aisoc %s (commit %s, built %s, %s %s)\n",
				version, commit, date, runtime.Version(), platform)
			return nil
		},
	}
}
