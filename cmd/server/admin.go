package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storyia/internal/auth"
	"storyia/internal/models"
	"storyia/internal/store"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a staff superuser, or promote an existing account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		_, logger, st, err := setup()
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, st.Close(), logger.Sync())
		}()
		ctx := cmd.Context()

		u, err := st.GetUserByUsername(ctx, username)
		switch {
		case err == nil:
			u.IsStaff, u.IsSuperuser = true, true
			if err := st.UpdateUser(ctx, u); err != nil {
				return fmt.Errorf("failed to promote %s: %w", username, err)
			}
			logger.Info("promoted existing account", zap.String("username", username), zap.Int64("user_id", u.ID))
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := auth.ValidatePassword(password, username); err != nil {
			return fmt.Errorf("password rejected: %w", err)
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		u = models.User{Username: username, Email: email, Password: hash, IsStaff: true, IsSuperuser: true}
		id, err := st.CreateUser(ctx, &u)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", username, err)
		}
		logger.Info("created admin account", zap.String("username", username), zap.Int64("user_id", id))
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("username", "admin", "account name")
	createAdminCmd.Flags().String("email", "", "account email")
	createAdminCmd.Flags().String("password", "", "password for a new account")
}
