package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect a Google Drive account",
	Long: `Run the Google OAuth consent flow and attach the result to a project.

The flow has three steps:
  1. 'auth url' prints the consent URL for an owner identity.
  2. The owner approves access. With 'drivesync serve' running the redirect
     completes automatically; otherwise pass the code to 'auth complete'.
  3. 'auth attach' moves the owner's pending token onto a project.`,
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the Google consent URL",
	RunE:  runAuthURL,
}

var authCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Exchange an authorization code for the owner's pending token",
	RunE:  runAuthComplete,
}

var authAttachCmd = &cobra.Command{
	Use:   "attach [project-id]",
	Short: "Attach the owner's pending token to a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthAttach,
}

// Flags for auth.
var (
	authOwner string
	authCode  string
	authOpen  bool
)

// Replaced in tests.
var openBrowser = defaultOpenBrowser

var codeInput io.Reader = os.Stdin

func init() {
	for _, c := range []*cobra.Command{authURLCmd, authCompleteCmd, authAttachCmd} {
		c.Flags().StringVar(&authOwner, "owner", "", "identity of the account owner (required)")
		_ = c.MarkFlagRequired("owner")
	}
	authURLCmd.Flags().BoolVar(&authOpen, "open", false, "open the URL in the default browser")
	authCompleteCmd.Flags().StringVar(&authCode, "code", "", "authorization code (prompted for when omitted)")

	authCmd.AddCommand(authURLCmd)
	authCmd.AddCommand(authCompleteCmd)
	authCmd.AddCommand(authAttachCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthURL(cmd *cobra.Command, _ []string) error {
	if tokenManager == nil {
		return notConfigured("token manager")
	}

	url, err := tokenManager.BeginAuthorization(authOwner)
	if err != nil {
		return err
	}
	cmd.Println(url)

	if authOpen {
		if err := openBrowser(url); err != nil {
			cmd.PrintErrf("could not open browser: %v\n", err)
		}
	}
	return nil
}

func runAuthComplete(cmd *cobra.Command, _ []string) error {
	if tokenManager == nil {
		return notConfigured("token manager")
	}

	code := strings.TrimSpace(authCode)
	if code == "" {
		cmd.Print("Authorization code: ")
		code = readSecret(codeInput)
		cmd.Println()
	}
	if code == "" {
		return errors.New("authorization code is required")
	}

	ok, err := tokenManager.CompleteAuthorization(cmd.Context(), code, authOwner)
	if err != nil {
		return fmt.Errorf("complete authorization: %w", err)
	}
	if !ok {
		return errors.New("google rejected the authorization code; run 'drivesync auth url' again")
	}

	cmd.Printf("Authorization stored for %s. Attach it with 'drivesync auth attach <project-id> --owner %s'.\n",
		authOwner, authOwner)
	return nil
}

func runAuthAttach(cmd *cobra.Command, args []string) error {
	if tokenManager == nil {
		return notConfigured("token manager")
	}

	integ, err := tokenManager.AttachToProject(cmd.Context(), args[0], authOwner)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	cmd.Printf("Attached Drive account %s to project %s.\n", integ.AccountEmail, args[0])
	return nil
}

// readSecret reads without echo from a terminal and falls back to a line
// of plain input.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(r io.Reader) string {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	input, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(input)
}

// defaultOpenBrowser opens url in the platform browser.
func defaultOpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
