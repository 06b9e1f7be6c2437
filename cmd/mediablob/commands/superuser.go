package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeArtisanRiz/media-blob-kit/pkg/store"
)

var (
	suUsername string
	suPassword string
)

var superuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create the superuser account",
	Long: `Create the superuser account if it does not already exist.

Credentials come from the --username and --password flags, falling back
to the SU_USERNAME and SU_PASSWORD environment variables.

Examples:
  mediablob create-superuser --username root --password s3cret
  SU_USERNAME=root SU_PASSWORD=s3cret mediablob create-superuser`,
	RunE: runCreateSuperuser,
}

func init() {
	superuserCmd.Flags().StringVar(&suUsername, "username", "", "superuser username (default: SU_USERNAME)")
	superuserCmd.Flags().StringVar(&suPassword, "password", "", "superuser password (default: SU_PASSWORD)")
}

func runCreateSuperuser(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	username := suUsername
	if username == "" {
		username = cfg.SUUsername
	}
	password := suPassword
	if password == "" {
		password = cfg.SUPassword
	}
	if username == "" || password == "" {
		return fmt.Errorf("superuser username and password are required; use flags or SU_USERNAME/SU_PASSWORD")
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() { _ = st.Close() }()

	created, err := st.EnsureSuperuser(context.Background(), username, password)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("Superuser %q already exists\n", username)
		return nil
	}

	fmt.Printf("Superuser %q created\n", username)
	return nil
}
