/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/readshelf/apiserver/config"
	"github.com/readshelf/apiserver/internal/db"
	"github.com/readshelf/apiserver/internal/store"
	"github.com/readshelf/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// seedCmd creates the bootstrap admin account so the admin-only
// endpoints are reachable on a fresh install.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		email = strings.TrimSpace(email)
		if email == "" || password == "" {
			return errors.New("email and password are required")
		}
		if strings.TrimSpace(name) == "" {
			name = "Admin"
		}

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		users := store.NewUserRepository(dbConn)
		if _, err := users.GetByEmail(cmd.Context(), email); err == nil {
			return fmt.Errorf("user %s already exists", email)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		admin, err := users.Create(cmd.Context(), types.User{
			Name:         name,
			Email:        email,
			IsAdmin:      true,
			PasswordHash: string(hashed),
		})
		if err != nil {
			return err
		}

		fmt.Printf("created admin %s (id %d)\n", admin.Email, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("name", "", "admin display name")
	seedCmd.Flags().String("email", "", "admin email address")
	seedCmd.Flags().String("password", "", "admin password")
}
