package cli

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/AdhamEssa01/accademy/internal/config"
	"github.com/AdhamEssa01/accademy/internal/db"
	"github.com/AdhamEssa01/accademy/internal/domain"
	"github.com/AdhamEssa01/accademy/internal/roster"
)

// seed bootstraps an academy with its first admin account so the API is
// usable on a fresh database.
func newSeedCmd(configPath *string) *cobra.Command {
	var academyName, username, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an academy and its admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
			if err != nil {
				return err
			}
			defer dbh.Close()

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			store := roster.NewSQLStore(dbh)
			academyID := uuid.NewString()
			if err := store.CreateAcademy(ctx, academyID, academyName); err != nil {
				return err
			}
			admin := domain.User{
				ID:          uuid.NewString(),
				AcademyID:   academyID,
				Username:    username,
				DisplayName: username,
				Role:        domain.RoleAdmin,
				PassHash:    string(hash),
			}
			if err := store.CreateUser(ctx, admin); err != nil {
				return err
			}
			log.Printf("academy %s created (id=%s, admin=%s)", academyName, academyID, username)
			return nil
		},
	}
	cmd.Flags().StringVar(&academyName, "academy", "Academy", "academy name")
	cmd.Flags().StringVar(&username, "admin-user", "admin", "admin username")
	cmd.Flags().StringVar(&password, "admin-pass", "admin", "admin password")
	return cmd
}
