package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/capexec/internal/journal"
)

var journalFlags struct {
	jsonOut bool
	last    int
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the run journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		entries, err := journal.Read(cfg.Journal.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if journalFlags.last > 0 && len(entries) > journalFlags.last {
			entries = entries[len(entries)-journalFlags.last:]
		}
		for _, e := range entries {
			if journalFlags.jsonOut {
				data, err := json.Marshal(e)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				continue
			}
			line := fmt.Sprintf("%s  %-8s %-8s %s (%.0fms)",
				e.Time.Local().Format("2006-01-02 15:04:05"), e.Mode, e.Phase, e.Key, e.Duration)
			if len(e.Targets) > 0 {
				line += "  → " + strings.Join(e.Targets, ", ")
			}
			if e.Error != "" {
				line += "  ! " + e.Error
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().StringVar(&runFlags.configPath, "config", "", "config file path")
	journalCmd.Flags().BoolVar(&journalFlags.jsonOut, "json", false, "emit raw JSONL entries")
	journalCmd.Flags().IntVarP(&journalFlags.last, "last", "n", 0, "show only the last N entries")
}
