package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmid-labs/scangate/internal/identity"
)

var hashpwCmd = &cobra.Command{
	Use:   "hashpw [password]",
	Short: "Hash a password for the users config section",
	Long: `Produce a bcrypt hash suitable for auth.users[].password_hash.
The password can be passed as an argument or piped on stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashpw,
}

func init() {
	rootCmd.AddCommand(hashpwCmd)
}

func runHashpw(_ *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	fmt.Println(hash)

	return nil
}
