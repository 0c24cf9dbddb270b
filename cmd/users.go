package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/princesingh-ai-dev/faceauth/internal/biometric"
	"github.com/princesingh-ai-dev/faceauth/internal/config"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage identities on the identity server",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an enrolled identity",
	Long: `Delete an enrolled identity by name. Names are matched case- and
accent-insensitively, so "jan novak" deletes "Jan Novák".`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersDelete,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)

	usersListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := newIdentityClient(cfg)
	if err != nil {
		return err
	}

	users, err := client.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(users)
	}

	if len(users) == 0 {
		fmt.Println("No users enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED")
	fmt.Fprintln(w, "----\t-------")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\n", u.Name, u.CreatedAt)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d users\n", len(users))
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := newIdentityClient(cfg)
	if err != nil {
		return err
	}

	if err := client.Delete(context.Background(), args[0]); err != nil {
		if reason, ok := biometric.RejectionReason(err); ok {
			return fmt.Errorf("server refused delete: %s", reason)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
