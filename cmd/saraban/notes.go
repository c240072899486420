package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"saraban/internal/model"
	"saraban/internal/tui"
)

var logsCmd = &cobra.Command{
	Use:   "logs <project-id>",
	Short: "Show a project's history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		logs, err := a.api.ProjectLogs(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Println("No history for this project.")
			return nil
		}
		for _, l := range logs {
			fmt.Println(formatLog(l))
		}
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <project-id> <text...>",
	Short: "Add a note to a project's history",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		l, err := a.api.AddLog(cmd.Context(), id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Println("Added:", formatLog(*l))
		return nil
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Project timeline items and their notes",
}

var featuresListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's timeline items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		features, err := a.api.Features(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(features) == 0 {
			fmt.Println("No timeline items.")
			return nil
		}
		for _, f := range features {
			due := f.DueDate.String()
			if due == "" {
				due = "-"
			}
			fmt.Printf("%4d  %-11s  due %-10s  %s\n", f.ID, f.Status, due, f.Title)
		}
		return nil
	},
}

var featuresAddCmd = &cobra.Command{
	Use:   "add <project-id> <title>",
	Short: "Add a timeline item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		in := model.FeatureInput{Title: args[1]}
		in.Status, _ = cmd.Flags().GetString("status")
		in.Detail, _ = cmd.Flags().GetString("detail")
		if in.DueDate, err = dateFlag(cmd, "due"); err != nil {
			return err
		}
		f, err := a.api.CreateFeature(cmd.Context(), id, in)
		if err != nil {
			return err
		}
		fmt.Printf("Added timeline item %d (%s)\n", f.ID, f.Status)
		return nil
	},
}

var featuresNotesCmd = &cobra.Command{
	Use:   "notes <feature-id>",
	Short: "List notes on a timeline item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		notes, err := a.api.FeatureNotes(cmd.Context(), id)
		if err != nil {
			return err
		}
		for _, n := range notes {
			line := fmt.Sprintf("%s  %s: %s", n.CreatedAt.Local().Format("2006-01-02 15:04"), n.CreatedBy, n.Content)
			if n.Attachment != nil {
				line += "  [" + a.sess.ServerURL + *n.Attachment + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var featuresNoteCmd = &cobra.Command{
	Use:   "note <feature-id> <text...>",
	Short: "Add a note, optionally with an attachment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")
		n, err := a.api.AddNote(cmd.Context(), id, strings.Join(args[1:], " "), file)
		if err != nil {
			return err
		}
		fmt.Printf("Added note %d", n.ID)
		if n.Attachment != nil {
			fmt.Printf(" with attachment %s", *n.Attachment)
		}
		fmt.Println()
		return nil
	},
}

func formatLog(l model.AuditLog) string {
	return fmt.Sprintf("%s  %s  %-20s %s",
		l.Timestamp.Local().Format("2006-01-02 15:04"),
		tui.ActionStyle(l.Action).Render(fmt.Sprintf("%-6s", l.Action)),
		l.Actor,
		l.Details,
	)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	featuresAddCmd.Flags().StringP("status", "s", "", "PENDING, IN_PROGRESS, COMPLETED or DELAYED")
	featuresAddCmd.Flags().StringP("detail", "d", "", "Detail")
	featuresAddCmd.Flags().String("due", "", "Due date YYYY-MM-DD")
	featuresNoteCmd.Flags().StringP("file", "f", "", "Attach a file")

	featuresCmd.AddCommand(featuresListCmd)
	featuresCmd.AddCommand(featuresAddCmd)
	featuresCmd.AddCommand(featuresNotesCmd)
	featuresCmd.AddCommand(featuresNoteCmd)

	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(featuresCmd)
}
