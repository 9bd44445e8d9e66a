package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage a project's Google Group",
	Long: `Each project can own a Google Group. Files shared with the group are
synced alongside the project's selected items.`,
}

var groupCreateCmd = &cobra.Command{
	Use:   "create [project-id]",
	Short: "Create the project's group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupCreate,
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete [project-id]",
	Short: "Delete the project's group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupDelete,
}

var groupEnsureAdminCmd = &cobra.Command{
	Use:   "ensure-admin [project-id]",
	Short: "Make sure the admin account owns the project's group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupEnsureAdmin,
}

var groupFilesCmd = &cobra.Command{
	Use:   "files [project-id]",
	Short: "List files shared with the project's group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupFiles,
}

func init() {
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupEnsureAdminCmd)
	groupCmd.AddCommand(groupFilesCmd)
	rootCmd.AddCommand(groupCmd)
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	email, err := projectService.ProvisionGroup(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	cmd.Printf("Project group: %s\n", email)
	return nil
}

func runGroupDelete(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	if err := projectService.DeprovisionGroup(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	cmd.Println("Group deleted.")
	return nil
}

func runGroupEnsureAdmin(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	added, err := projectService.EnsureGroupAdmin(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if added {
		cmd.Println("Admin added as group owner.")
	} else {
		cmd.Println("Admin is already a member.")
	}
	return nil
}

func runGroupFiles(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return notConfigured("project service")
	}

	files, err := projectService.GroupFiles(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("group files: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("No files are shared with the group.")
		return nil
	}
	for _, f := range files {
		printFile(cmd, f)
	}
	return nil
}
