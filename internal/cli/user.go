package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblio/internal/credential"
	"github.com/mesh-intelligence/biblio/internal/report"
	"github.com/mesh-intelligence/biblio/pkg/types"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage library users",
	}
	cmd.AddCommand(
		newUserAddCmd(a),
		newUserRegisterCmd(a),
		newUserVerifyCmd(a),
		newUserUpdateCmd(a),
		newUserDeleteCmd(a),
		newUserListCmd(a),
	)
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <id> <first-name> <last-name>",
		Short:   "Add a user",
		Example: `  biblio user add 12345678Z Ada Lovelace`,
		Args:    usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := checkUserID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			u := types.NewUser(id, args[1], args[2])
			if err := a.store.InsertUser(cmd.Context(), u); err != nil {
				return err
			}
			return a.printUser(cmd.OutOrStdout(), u)
		},
	}
}

func newUserRegisterCmd(a *app) *cobra.Command {
	var password, role string
	cmd := &cobra.Command{
		Use:     "register <id> <first-name> <last-name>",
		Short:   "Add a user with a password and role",
		Example: `  biblio user register 12345678Z Ada Lovelace --password s3cret --role admin`,
		Args:    usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := checkUserID(args[0])
			if err != nil {
				return err
			}
			if password == "" {
				return usageErrorf("--password is required")
			}
			if role, err = credential.ParseRole(role); err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}

			ctx := cmd.Context()
			u := types.NewUser(id, args[1], args[2])
			if err := a.store.InsertUser(ctx, u); err != nil {
				return err
			}
			if _, err := a.creds.Register(u.ID, password, role); err != nil {
				if derr := a.store.DeleteUser(ctx, u.ID); derr != nil {
					a.logger.Error("rolling back user after failed registration", "user_id", u.ID, "error", derr.Error())
				}
				return err
			}
			return a.printUser(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for the user (required)")
	cmd.Flags().StringVar(&role, "role", types.RoleNormal, "role: normal or admin")
	return cmd
}

func newUserVerifyCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Check a registered user's password",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := checkUserID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			c, err := a.creds.Verify(id, password)
			if err != nil {
				return err
			}
			return a.printMessage(cmd.OutOrStdout(), "%s verified (role %s)", c.UserID, c.Role)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to check")
	return cmd
}

func newUserUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <first-name> <last-name>",
		Short: "Replace a user's names",
		Long: `Update replaces the first and last name of a user. The id cannot change.
Updating an unknown id changes nothing; it is reported as an error only when
strict_updates is enabled in config.yaml.`,
		Args: usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := checkUserID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			patch := types.NewUser(id, args[1], args[2])
			if err := a.store.UpdateUser(cmd.Context(), id, patch.FirstName, patch.LastName); err != nil {
				return err
			}
			return a.printMessage(cmd.OutOrStdout(), "user %s updated", id)
		},
	}
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user who holds no books",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := checkUserID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			if err := a.lender.RemoveUser(cmd.Context(), id); err != nil {
				return err
			}
			if err := a.creds.Remove(id); err != nil {
				return err
			}
			return a.printMessage(cmd.OutOrStdout(), "user %s deleted", id)
		},
	}
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users ordered by id",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			users, err := a.store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				registered := make([]*types.RegisteredUser, 0, len(users))
				for _, u := range users {
					ru := a.creds.Attach(u)
					if ru.Credential != nil {
						ru.Credential = &types.Credential{UserID: ru.Credential.UserID, Role: ru.Credential.Role}
					}
					registered = append(registered, ru)
				}
				return report.JSON(cmd.OutOrStdout(), registered)
			}
			return report.Users(cmd.OutOrStdout(), users)
		},
	}
}

func (a *app) printUser(w io.Writer, u *types.User) error {
	return a.print(w, u, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "user %s added (%s)\n", u.ID, u.FullName())
		return err
	})
}
