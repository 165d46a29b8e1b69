package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	credentialsFile = "credentials.json"
	tokenPrefix     = "token-"
	tokenSuffix     = ".json"

	// Desktop apps paste the code back into the terminal.
	outOfBandRedirect = "urn:ietf:wg:oauth:2.0:oob"
)

// TokenFile is the file the token of an account is stored in, relative to dir.
func TokenFile(dir, account string) string {
	return filepath.Join(dir, tokenPrefix+account+tokenSuffix)
}

// GetOAuthConfigForAuthFlow returns the read-only calendar OAuth config. The
// client ID and secret win over a credentials.json in the working directory.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  outOfBandRedirect,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	raw, err := os.ReadFile(credentialsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no Google credentials: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or add %s", credentialsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", credentialsFile, err)
	}

	config, err := google.ConfigFromJSON(raw, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", credentialsFile, err)
	}
	config.RedirectURL = outOfBandRedirect
	return config, nil
}

// TokenFromWeb exchanges the code pasted by the user for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken writes token to path, readable only by the current user.
func SaveToken(path string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}
	return nil
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &token, nil
}

// GetTokenAccounts lists, sorted, the accounts that have a token file in dir.
func GetTokenAccounts(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, tokenPrefix) || !strings.HasSuffix(name, tokenSuffix) {
			continue
		}
		if account := strings.TrimSuffix(strings.TrimPrefix(name, tokenPrefix), tokenSuffix); account != "" {
			accounts = append(accounts, account)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}
