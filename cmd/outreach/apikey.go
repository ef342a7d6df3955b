package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "API key management commands",
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash an API key for the config file",
	Long:  `Reads an API key and prints its bcrypt hash for the auth.api_key_hash config field.`,
	RunE:  runAPIKeyHash,
}

var apikeyValue string

func init() {
	apikeyHashCmd.Flags().StringVar(&apikeyValue, "key", "", "API key (will prompt if not provided)")
	apikeyCmd.AddCommand(apikeyHashCmd)
}

func runAPIKeyHash(cmd *cobra.Command, args []string) error {
	key := apikeyValue
	if key == "" {
		fmt.Fprint(os.Stderr, "API key: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = string(raw)
	}
	if key == "" {
		return fmt.Errorf("API key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}
