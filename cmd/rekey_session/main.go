// Re-encrypt the .cws session file under a new password. The file is replaced in place.
// Usage: go run ./cmd/rekey_session [path/to/session.cws]
// Without an argument SESSION_FILE_PATH is used.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/crypto"
)

func main() {
	var path string
	if len(os.Args) > 1 {
		path = os.Args[1]
	} else {
		if err := config.Init(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		path = config.GetSessionFilePath()
	}
	if err := rekey(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("session file re-encrypted:", path)
}

func rekey(path string) error {
	oldPassword, err := config.ReadPassword("Current password: ")
	if err != nil {
		return err
	}
	defer clear(oldPassword)

	session, err := crypto.DecryptSession(path, oldPassword)
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidPassword) {
			return errors.New("wrong password")
		}
		return err
	}

	newPassword, err := config.ReadPassword("New password: ")
	if err != nil {
		return err
	}
	defer clear(newPassword)

	confirm, err := config.ReadPassword("Repeat new password: ")
	if err != nil {
		return err
	}
	defer clear(confirm)

	if !bytes.Equal(newPassword, confirm) {
		return errors.New("passwords do not match")
	}

	// fresh salt and nonce on every write
	return crypto.EncryptSession(path, session, newPassword)
}
