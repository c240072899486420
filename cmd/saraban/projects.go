package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"saraban/internal/client"
	"saraban/internal/model"
	"saraban/internal/projectcode"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"p"},
	Short:   "List and manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		projects, err := a.api.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet.")
			return nil
		}
		fmt.Println(projectTable(projects))
		return nil
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Long: `Create a project. Without --code the next code for the acronym and type is
computed from the current project list; if another user takes it first the
list is refreshed and the code recomputed.

Type tags: P (general), SP (sub-project), I (innovation), C (consulting),
B (booth), FND (funding).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		in := model.ProjectInput{Name: args[0]}
		in.Code, _ = flags.GetString("code")
		in.Acronym, _ = flags.GetString("acronym")
		in.TypeTag, _ = flags.GetString("type")
		in.Description, _ = flags.GetString("description")
		in.Owner, _ = flags.GetString("owner")
		in.Status, _ = flags.GetString("status")
		budget, _ := flags.GetString("budget")
		in.Budget = model.ParseBudget(budget)
		if in.StartDate, err = dateFlag(cmd, "start"); err != nil {
			return err
		}
		if in.EndDate, err = dateFlag(cmd, "end"); err != nil {
			return err
		}

		var p *model.Project
		if in.Code != "" {
			p, err = a.api.CreateProject(cmd.Context(), in)
		} else {
			p, err = a.api.CreateProjectWithRetry(cmd.Context(), in, 3)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Created %s %q (id %d, status %s)\n", p.Code, p.Name, p.ID, p.Status)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		projects, err := a.api.ListProjects(cmd.Context())
		if err != nil {
			return err
		}

		list := client.NewProjectList(projects)
		pending, err := client.DeleteOptimistic(cmd.Context(), a.api, list, id)
		if err != nil {
			if pending != nil && pending.State() == client.DeleteRolledBack {
				fmt.Fprintf(os.Stderr, "Delete of %s failed, project kept.\n", pending.Item().Code)
			}
			return err
		}
		fmt.Printf("Deleted %s %q. %d projects remain.\n", pending.Item().Code, pending.Item().Name, len(list.Items()))
		return nil
	},
}

var projectsNextCodeCmd = &cobra.Command{
	Use:   "next-code",
	Short: "Preview the next project code",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		acronym, _ := cmd.Flags().GetString("acronym")
		typeTag, _ := cmd.Flags().GetString("type")
		code, err := a.api.NextCode(cmd.Context(), acronym, typeTag)
		if err != nil {
			return err
		}
		fmt.Println(code)
		return nil
	},
}

func projectTable(projects []model.Project) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		Headers("ID", "CODE", "NAME", "STATUS", "BUDGET", "START", "END").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, p := range projects {
		t.Row(strconv.Itoa(p.ID), p.Code, p.Name, p.Status,
			strconv.FormatFloat(p.Budget.Float(), 'f', 2, 64),
			p.StartDate.String(), p.EndDate.String())
	}
	return t.Render()
}

func dateFlag(cmd *cobra.Command, name string) (model.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func init() {
	f := projectsCreateCmd.Flags()
	f.String("code", "", "Explicit project code (skips generation)")
	f.StringP("acronym", "a", "", "Department acronym used in the code (default XXX)")
	f.StringP("type", "t", projectcode.TagProject, "Project type tag")
	f.StringP("description", "d", "", "Description")
	f.String("owner", "", "Owner")
	f.String("budget", "", "Budget, e.g. 1,500,000")
	f.StringP("status", "s", "", "Status (default DRAFT)")
	f.String("start", "", "Start date YYYY-MM-DD")
	f.String("end", "", "End date YYYY-MM-DD")

	projectsNextCodeCmd.Flags().StringP("acronym", "a", "", "Department acronym")
	projectsNextCodeCmd.Flags().StringP("type", "t", projectcode.TagProject, "Project type tag")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	projectsCmd.AddCommand(projectsNextCodeCmd)
	rootCmd.AddCommand(projectsCmd)
}
