// Command hashpw prints a bcrypt hash suitable for the users.password_hash
// column. The password is read from the first argument, or from stdin when
// no argument is given. With -generate a random password is created and
// printed on the line before its hash.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/afci/trajet/pkg/cryptox"
)

func main() {
	cost := flag.Int("cost", cryptox.DefaultBcryptCost, "bcrypt work factor")
	verify := flag.String("verify", "", "check the password against this hash instead of hashing it")
	generate := flag.Bool("generate", false, "generate a random password and print it with its hash")
	flag.Parse()

	var (
		password string
		err      error
	)
	if *generate {
		password, err = cryptox.GeneratePassword()
	} else {
		password, err = readPassword(flag.Args())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(2)
	}

	passwords, err := cryptox.NewPasswords(*cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(2)
	}

	if *verify != "" {
		err := passwords.Verify(password, *verify)
		switch {
		case errors.Is(err, cryptox.ErrPasswordMismatch):
			fmt.Println("NO MATCH")
			os.Exit(1)
		case err != nil:
			fmt.Fprintln(os.Stderr, "hashpw:", err)
			os.Exit(2)
		}
		fmt.Println("MATCH")
		return
	}

	hash, err := passwords.Hash(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	if *generate {
		fmt.Println(password)
	}
	fmt.Println(hash)
}

func readPassword(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", fmt.Errorf("empty password")
	}
	return line, nil
}
