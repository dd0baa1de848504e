package main

import "github.com/spf13/cobra"

var lsCmd = &cobra.Command{
	Use:   "ls [dir...]",
	Short: "List discovered capturable executables without running them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		return runCapexecs(cmd, args, true)
	},
}

func init() {
	lsCmd.Flags().StringVar(&runFlags.configPath, "config", "", "config file path")
	lsCmd.Flags().StringArrayVar(&runFlags.searchDirs, "search-dir", nil, "extra stage search directory (repeatable)")
}
