package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AlexZinkM/walletlink/internal/model"
)

// ErrInvalidPassword is returned when the session file cannot be opened with the given password
var ErrInvalidPassword = errors.New("invalid password")

// ErrSessionFileNotFound is returned when there is no persisted session yet
var ErrSessionFileNotFound = errors.New("session file does not exist")

// OpenWithPassword decrypts a sealed session file.
// The caller should clear the returned plaintext after use.
func OpenWithPassword(sessionFile *model.SessionFile, password []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(sessionFile.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(sessionFile.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sessionFile.CipherText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aesGCM, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}

// DecryptSession reads and decrypts a .cws file
// password must be []byte for security (caller should zero it after use)
func DecryptSession(filePath string, password []byte) (*model.AuthSession, error) {
	sessionFile, err := ReadSessionFile(filePath)
	if err != nil {
		return nil, err
	}

	plaintext, err := OpenWithPassword(sessionFile, password)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	var session model.AuthSession
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// ReadSessionFile reads the sealed structure from disk without decrypting it
func ReadSessionFile(filePath string) (*model.SessionFile, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionFileNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() == 0 {
		return nil, errors.New("file is empty")
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Skip UTF-8 BOM if present
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}

	var sessionFile model.SessionFile
	if err := json.Unmarshal(fileData, &sessionFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session file: %w", err)
	}

	return &sessionFile, nil
}
