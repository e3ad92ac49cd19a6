// Package secrets keeps mailbox and notifier credentials in the OS
// keychain so they never land in the yaml config. An environment
// variable works as a fallback for headless machines.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/adamsnows/jobhunter-bot/internal/config"
)

// Service groups this app's secrets in the OS keychain.
const Service = "jobhunter"

func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	pw, err := keyring.Get(Service, account)
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", account, err)
	}
	if strings.TrimSpace(pw) == "" {
		return "", fmt.Errorf("keyring entry %s is empty", account)
	}
	return pw, nil
}

// GetWithEnv tries the keychain first and falls back to an environment
// variable, for daemons running without a desktop session.
func GetWithEnv(account, envKey string) (string, error) {
	if pw, err := Get(account); err == nil {
		return pw, nil
	}
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("credential %s not found (keychain or %s)", account, envKey)
}

func Set(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(Service, account, password)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(Service, account)
}

// IMAPAccount derives the keychain account name for the mailbox source.
// The configured keyring_account wins when set.
func IMAPAccount(cfg config.Config) string {
	if a := strings.TrimSpace(cfg.Sources.Mailbox.KeyringAccount); a != "" {
		return a
	}
	return fmt.Sprintf("jobhunter:imap:%s@%s",
		cfg.Sources.Mailbox.Username, cfg.Sources.Mailbox.IMAPHost)
}

func SMTPAccount(cfg config.Config) string {
	return fmt.Sprintf("jobhunter:smtp:%s@%s",
		cfg.Notify.Email.From, cfg.Notify.Email.SMTPHost)
}

// TelegramAccount holds the bot token.
func TelegramAccount() string { return "jobhunter:telegram:bot" }
