// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toeirei/inbound/internal/i18n"
	"github.com/toeirei/inbound/internal/model"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   i18n.T("cli.accounts_short"),
	}

	var typ string
	add := &cobra.Command{
		Use:   "add <nickname> <profile-url>",
		Short: i18n.T("cli.accounts_add_short"),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountType, err := model.ParseAccountType(typ)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			id, err := store.AddAccount(cmd.Context(), args[0], args[1], accountType)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.accounts_added", args[0], id))
			return nil
		},
	}
	add.Flags().StringVarP(&typ, "type", "t", "person", "Account type (person, community)")

	list := &cobra.Command{
		Use:   "list",
		Short: i18n.T("cli.accounts_list_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			accounts, err := store.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				fmt.Fprintln(out, i18n.T("cli.accounts_none"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNICKNAME\tTYPE\tURL")
			for _, a := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Nickname, a.Type, a.URL)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func parseRelation(s string) (model.Relation, error) {
	switch s {
	case "none":
		return model.RelNone, nil
	case "follower":
		return model.RelFollower, nil
	case "sharing":
		return model.RelSharing, nil
	case "friend":
		return model.RelFriend, nil
	}
	return model.RelNone, fmt.Errorf("unknown relation %q (none, follower, sharing, friend)", s)
}

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   i18n.T("cli.contacts_short"),
	}

	var (
		rel      string
		protocol string
	)
	add := &cobra.Command{
		Use:   "add <nickname> <actor-url>",
		Short: i18n.T("cli.contacts_add_short"),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			relation, err := parseRelation(rel)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := store.AccountByNickname(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if account == nil {
				return errors.New(i18n.T("error.unknown_account", args[0]))
			}
			id, err := store.SaveContact(cmd.Context(), model.Contact{
				AccountID: account.ID,
				URL:       args[1],
				Protocol:  model.Protocol(protocol),
				Rel:       relation,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.contacts_added", args[1], account.Nickname, id))
			return nil
		},
	}
	add.Flags().StringVar(&rel, "rel", "sharing", "Relationship (none, follower, sharing, friend)")
	add.Flags().StringVar(&protocol, "protocol", string(model.ProtocolActivityPub), "Protocol (apub, dfrn, stat)")

	cmd.AddCommand(add)
	return cmd
}
