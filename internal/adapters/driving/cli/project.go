package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aganswers/drivesync/internal/core/domain"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectAdmins []string

func init() {
	projectAddCmd.Flags().StringSliceVar(&projectAdmins, "admin", nil,
		"identity allowed to manage the project (repeatable)")
	_ = projectAddCmd.MarkFlagRequired("admin")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	p, err := projectService.Create(cmd.Context(), args[0], projectAdmins)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	cmd.Printf("Created project %s (%s)\n", p.Name, p.ID)
	return nil
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	projects, err := projectService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		cmd.Println("No projects. Add one with 'drivesync project add'.")
		return nil
	}
	for i := range projects {
		printProject(cmd, &projects[i])
	}
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	p, err := projectService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	printProject(cmd, p)
	return nil
}

func printProject(cmd *cobra.Command, p *domain.Project) {
	group := p.GroupEmail
	if group == "" {
		group = "-"
	}
	cmd.Printf("%s  %s\n", p.ID, p.Name)
	cmd.Printf("    admins: %s\n", strings.Join(p.Admins, ", "))
	cmd.Printf("    group:  %s\n", group)
}
