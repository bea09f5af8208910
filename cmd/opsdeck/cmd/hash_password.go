package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/domain/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash a password for manual account provisioning",
	Long: `Hash a password with Argon2id for direct insertion into the users table.

The output can be used as the password_hash column value when seeding an
admin account without going through the register endpoint.

Example:
  opsdeck hash-password "correct horse battery staple"

Security note: the password will appear in shell history. Consider using
an environment variable:
  opsdeck hash-password "$OPSDECK_ADMIN_PASSWORD"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
