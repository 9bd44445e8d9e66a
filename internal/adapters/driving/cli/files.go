package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aganswers/drivesync/internal/core/domain"
)

var filesCmd = &cobra.Command{
	Use:   "files [project-id] [folder-id]",
	Short: "Browse the project's Drive",
	Long: `Lists the direct children of a Drive folder using the project's integration.
Without a folder ID the root of My Drive is listed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	if driveLister == nil {
		return notConfigured("drive listing")
	}

	folderID := ""
	if len(args) == 2 {
		folderID = args[1]
	}
	files, err := driveLister.ListFiles(cmd.Context(), args[0], folderID)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("Folder is empty.")
		return nil
	}
	for _, f := range files {
		printFile(cmd, f)
	}
	return nil
}

func printFile(cmd *cobra.Command, f domain.FileMetadata) {
	kind := "file  "
	if f.IsFolder {
		kind = "folder"
	}
	cmd.Printf("%s  %s  %s  %s\n", kind, f.ID, f.Name, f.MIMEType)
}
