package commands

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/trocaroupa/trocas/internal/auth"
	"github.com/trocaroupa/trocas/internal/db"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

const defaultAdminEmail = "admin@trocas.local"

func initCmd() *cobra.Command {
	var adminEmail, adminName, password string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the first admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath); err == nil {
				return fmt.Errorf("database %s already exists", dbPath)
			}
			database, adminPassword, err := initDatabase(cmd.Context(), dbPath, adminName, adminEmail, password)
			if err != nil {
				return err
			}
			database.Close()
			printInitResult(dbPath, adminEmail, adminPassword)
			return nil
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", defaultAdminEmail, "admin account email")
	cmd.Flags().StringVar(&adminName, "name", "Admin", "admin display name")
	cmd.Flags().StringVar(&password, "password", "", "admin password (generated when empty)")
	return cmd
}

// initDatabase creates a new database with the schema and an admin account.
// On failure the half-created file is removed.
func initDatabase(ctx context.Context, path, name, email, password string) (_ *sql.DB, _ string, err error) {
	email, err = model.NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if password == "" {
		if password, err = generatePassword(16); err != nil {
			return nil, "", fmt.Errorf("generating password: %w", err)
		}
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err != nil {
			database.Close()
			os.Remove(path)
		}
	}()

	if err = db.EnsureSchema(database); err != nil {
		return nil, "", fmt.Errorf("ensuring schema: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}
	if _, err = store.CreateUser(ctx, database, name, email, hash, model.RoleAdmin); err != nil {
		return nil, "", fmt.Errorf("creating admin user: %w", err)
	}

	return database, password, nil
}

func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed on the account page after logging in.")
}

func generatePassword(length int) (string, error) {
	const charset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

func dbMissing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, os.ErrNotExist)
}
