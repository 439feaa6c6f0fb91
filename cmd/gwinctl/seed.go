package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gwin/internal/app"
	"gwin/internal/core/entity"
	"gwin/internal/domain"
	"gwin/internal/domain/catalogs"
	"gwin/pkg/logger"
)

func newSeedCmd(opts *options) *cobra.Command {
	var login, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the administrator role and user",
		Long: `Creates the ADMIN role and an administrator account holding it. Existing
records are kept, so the command can run on every deployment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				return fmt.Errorf("administrator password is required: use --password or GWIN_ADMIN_PASSWORD")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := requireDSN(cfg); err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := seedAdmin(cmd.Context(), a.Factory, login, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %s ready (id %d)\n", user.Login, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "login", "admin", "administrator login")
	cmd.Flags().StringVar(&password, "password", os.Getenv("GWIN_ADMIN_PASSWORD"), "administrator password, at least 8 characters")
	return cmd
}

// seedAdmin makes sure the ADMIN role and the login account exist and that
// the account holds the role.
func seedAdmin(ctx context.Context, f *domain.Factory, login, password string) (*catalogs.User, error) {
	roles, err := f.New("Role")
	if err != nil {
		return nil, err
	}
	defer roles.Close()

	role, err := findOne(ctx, roles, "Name", "ADMIN")
	if err != nil {
		return nil, err
	}
	if role == nil {
		role = &catalogs.Role{Name: "ADMIN", Hidden: true}
		if _, err := roles.SaveEntity(ctx, role); err != nil {
			return nil, err
		}
		logger.Info(ctx, "role created", "name", "ADMIN", "id", role.Base().ID)
	}

	users, err := f.New("User")
	if err != nil {
		return nil, err
	}
	defer users.Close()

	login = strings.ToLower(strings.TrimSpace(login))
	found, err := findOne(ctx, users, "Login", login)
	if err != nil {
		return nil, err
	}
	var user *catalogs.User
	if found != nil {
		// listings leave out the role ids
		loaded, err := users.FindByID(ctx, found.Base().ID)
		if err != nil {
			return nil, err
		}
		user = loaded.(*catalogs.User)
	} else {
		user = &catalogs.User{Login: login, Password: password, FirstName: "Administrator"}
	}
	roleID := role.Base().ID
	for _, id := range user.RoleIDs {
		if id == roleID {
			return user, nil
		}
	}
	user.RoleIDs = append(user.RoleIDs, roleID)
	if _, err := users.SaveEntity(ctx, user); err != nil {
		return nil, err
	}
	logger.Info(ctx, "administrator saved", "login", user.Login, "id", user.ID)
	return user, nil
}

// findOne returns the entity whose property equals value exactly, or nil.
func findOne(ctx context.Context, blo domain.BLO, property string, value string) (entity.Entity, error) {
	items, err := blo.SearchEntities(ctx, map[string]any{property: value}, 0, 0)
	if err != nil {
		return nil, err
	}
	p, _ := blo.Config().Property(property)
	for _, e := range items {
		if p.Get(e) == value {
			return e, nil
		}
	}
	return nil, nil
}
