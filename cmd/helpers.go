package cmd

import (
	"errors"
	"strings"
)

// parseBasicAuth turns "user:secret" pairs into the basicauth user map. The
// API is never served without credentials.
func parseBasicAuth(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, errors.New("APP_BASIC_AUTH is required. Nothing should be public; please set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<secret2>] and restart.")
	}
	account := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		user, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || user == "" || secret == "" {
			return nil, errors.New("Basic auth is not valid, please this following format <user>:<secret>")
		}
		account[user] = secret
	}
	return account, nil
}
