// secircctl administers the on-disk registries the chat server reads:
// issuing invite tokens and adding users out of band. A running server picks
// the changes up through its registry watcher.
package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/secirc/secirc/internal/v1/config"
	"github.com/secirc/secirc/internal/v1/protocol"
	"github.com/secirc/secirc/internal/v1/registry"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "secircctl",
		Short:         "Administer the secirc user and token registries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the server config file")

	root.AddCommand(tokenCmd(), userCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage invite tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "issue",
		Short: "Issue a fresh single-use invite token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens, err := registry.LoadTokens(cfg.TokensFile)
			if err != nil {
				return err
			}
			tok, err := tokens.Issue()
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List unexpired tokens with their issue times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens, err := registry.LoadTokens(cfg.TokensFile)
			if err != nil {
				return err
			}
			for _, info := range tokens.Active() {
				fmt.Printf("%s\t%s\n", info.Token, info.IssuedAt.UTC().Format("2006-01-02T15:04:05Z"))
			}
			return nil
		},
	})

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <username> <pubkey-b64>",
		Short: "Register a user directly, bypassing the invite-token flow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, pubKey := args[0], args[1]
			if !protocol.ValidUsername(name) {
				return fmt.Errorf("invalid username %q: 1-32 chars of [A-Za-z0-9_]", name)
			}
			if _, err := base64.StdEncoding.DecodeString(pubKey); err != nil || pubKey == "" {
				return fmt.Errorf("public key must be non-empty base64")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			users, err := registry.LoadUsers(cfg.UsersFile)
			if err != nil {
				return err
			}
			inserted, err := users.Register(name, pubKey)
			if err != nil {
				return err
			}
			if !inserted {
				return fmt.Errorf("username %q already registered", name)
			}
			fmt.Printf("registered %s\n", name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered usernames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			users, err := registry.LoadUsers(cfg.UsersFile)
			if err != nil {
				return err
			}
			for _, name := range users.Names() {
				fmt.Println(name)
			}
			return nil
		},
	})

	return cmd
}
