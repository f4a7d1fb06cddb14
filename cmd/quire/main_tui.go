//go:build tui

package main

import (
	"github.com/spf13/cobra"

	"github.com/unowned-ai/quire/pkg/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Show terminal UI",
		Long:  `Display an interactive terminal UI for browsing, searching and publishing entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, svc, err := openService()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			return tui.ShowTUI(dbConn, svc, cfg.PageSize)
		},
	}
}

func init() {
	extraCommands = append(extraCommands, newTUICmd)
}
