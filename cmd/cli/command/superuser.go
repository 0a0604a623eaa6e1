package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/database"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser [username] [email]",
	Short: "Create an account with the superuser flag",
	Long: `Create an account with the superuser flag. Superusers pass every permission
check. Log in afterwards with POST /api/v1/auth/code and /api/v1/auth/token.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := createSuperuser(ctx, db, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("✓ Superuser created successfully!")
		fmt.Printf("Username: %s\n", args[0])
		return nil
	},
}

// createSuperuser validates like the admin API does, then raises the flag.
func createSuperuser(ctx context.Context, db *gorm.DB, username, email string) error {
	users := repository.NewUserRepository(db)

	if _, err := service.NewUserService(users).Create(ctx, dto.UserRequest{
		Username: &username,
		Email:    &email,
	}); err != nil {
		return describe(err)
	}

	user, err := users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("reload %s: %w", username, err)
	}
	user.IsSuperuser = true
	if err := users.Update(ctx, user); err != nil {
		return fmt.Errorf("set superuser flag: %w", err)
	}
	return nil
}

// describe flattens field errors for the terminal.
func describe(err error) error {
	ae := apperr.As(err)
	if ae == nil || len(ae.Fields) == 0 {
		return err
	}
	parts := make([]string, 0, len(ae.Fields))
	for field, msgs := range ae.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}
