// Команда createadmin пересоздаёт учётные записи администраторов для всех
// адресов из SUPER_ADMINS и *_ADMINS. Пароли берутся из ADMIN_PASSWORDS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/texperia/registration/auth"
	"github.com/texperia/registration/config"
	"github.com/texperia/registration/db"
	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/utils"
)

const defaultAdminPassword = "admin123"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	resolver, err := auth.NewResolver(cfg.SuperAdmins, cfg.EventAdmins())
	if err != nil {
		logger.Error("invalid admin directory", slog.Any("error", err))
		os.Exit(1)
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	emails := resolver.AllowList()
	deleted, err := seedAdmins(ctx,
		repositories.NewTransactor(dbConn),
		repositories.NewPostgresUserRepository(dbConn),
		emails, cfg.AdminPasswords)
	if err != nil {
		logger.Error("failed to create admin accounts", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("admin accounts ready",
		slog.Int64("deleted", deleted),
		slog.Int("created", len(emails)))
}

// seedAdmins удаляет всех администраторов и создаёт их заново в одной
// транзакции. Адреса без пароля получают defaultAdminPassword.
func seedAdmins(
	ctx context.Context,
	tx repositories.Transactor,
	users repositories.UserRepository,
	emails []string,
	passwords map[string]string,
) (int64, error) {
	normalized := make(map[string]string, len(passwords))
	for email, password := range passwords {
		normalized[utils.NormalizeEmail(email)] = password
	}

	sorted := make([]string, 0, len(emails))
	for _, email := range emails {
		sorted = append(sorted, utils.NormalizeEmail(email))
	}
	sort.Strings(sorted)

	var deleted int64
	err := tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		n, err := users.DeleteByRole(ctx, exec, models.RoleAdmin)
		if err != nil {
			return fmt.Errorf("delete old admins: %w", err)
		}
		deleted = n

		for _, email := range sorted {
			password, ok := normalized[email]
			if !ok || password == "" {
				password = defaultAdminPassword
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			admin := &models.User{
				Email:        email,
				PasswordHash: hash,
				Role:         models.RoleAdmin,
			}
			if err := users.Create(ctx, exec, admin); err != nil {
				return fmt.Errorf("create admin %s: %w", email, err)
			}
		}
		return nil
	})
	return deleted, err
}
