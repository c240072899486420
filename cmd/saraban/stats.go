package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"saraban/internal/tui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Dashboard counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		s, err := a.api.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(tui.TitleStyle.Render("Dashboard"))
		fmt.Printf("Total projects:  %d\n", s.Total)
		fmt.Printf("Active:          %d\n", s.Active)
		fmt.Printf("Completed:       %d\n", s.Completed)
		fmt.Printf("Total budget:    %.2f\n\n", s.TotalBudget)

		peak := 0
		for _, b := range s.ChartData {
			peak = max(peak, b.Count)
		}
		for _, b := range s.ChartData {
			bar := ""
			if peak > 0 {
				bar = strings.Repeat("█", b.Count*30/peak)
			}
			fmt.Printf("%-10s %4d %s\n", b.Name, b.Count, tui.UnreadStyle.Render(bar))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
