package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"laborbook/account"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage supervisor and labor profiles",
	}

	accountsCmd.AddCommand(newAccountsCreateCommand(ctx))
	accountsCmd.AddCommand(newAccountsRoleCommand(ctx))
	accountsCmd.AddCommand(newAccountsTokenCommand(ctx))

	return accountsCmd
}

func (c *commandContext) withAccounts(cmd *cobra.Command, fn func(*account.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return c.withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
		return fn(account.NewService(account.NewRepository(pool), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration))
	})
}

func newAccountsCreateCommand(ctx *commandContext) *cobra.Command {
	var phone, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccounts(cmd, func(svc *account.Service) error {
				profile, err := svc.Register(cmd.Context(), phone, account.Role(strings.ToLower(role)))
				if err != nil {
					return err
				}
				printProfile(cmd, profile)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "Phone number identifying the profile")
	cmd.Flags().StringVar(&role, "role", string(account.RoleLabor), "Role: supervisor or labor")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newAccountsRoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "role <profile-id|phone> <supervisor|labor>",
		Short: "Change a profile's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccounts(cmd, func(svc *account.Service) error {
				profile, err := resolveProfile(cmd, svc, args[0])
				if err != nil {
					return err
				}
				updated, err := svc.ChangeRole(cmd.Context(), profile.ID, account.Role(strings.ToLower(args[1])))
				if err != nil {
					return err
				}
				printProfile(cmd, updated)
				return nil
			})
		},
	}
}

func newAccountsTokenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "token <profile-id|phone>",
		Short: "Issue a bearer token for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			return ctx.withAccounts(cmd, func(svc *account.Service) error {
				profile, err := resolveProfile(cmd, svc, args[0])
				if err != nil {
					return err
				}
				token, err := svc.IssueToken(cmd.Context(), profile.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
}

// resolveProfile accepts either a profile id or a phone number.
func resolveProfile(cmd *cobra.Command, svc *account.Service, ref string) (account.Profile, error) {
	if _, err := account.NormalizePhone(ref); err == nil {
		profile, err := svc.GetByPhone(cmd.Context(), ref)
		if err == nil || !account.IsNotFound(err) {
			return profile, err
		}
	}
	if _, err := uuid.Parse(ref); err != nil {
		return account.Profile{}, fmt.Errorf("%q is neither a profile id nor a known phone number", ref)
	}
	return svc.Get(cmd.Context(), ref)
}

func printProfile(cmd *cobra.Command, p account.Profile) {
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Phone", "Role", "Created"},
		[][]string{{p.ID, p.Phone, string(p.Role), p.CreatedAt.Format("2006-01-02 15:04:05")}},
		nil,
	))
}
