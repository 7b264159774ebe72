package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrUnknownAccount is returned by Accounts.Lookup for keys that do
// not appear in the registry. The HTTP layer maps it to a 404.
var ErrUnknownAccount = errors.New("unknown account key")

// Account describes one viewer account: whose invitations count as
// "mine" when dropping declined events, which feeds to aggregate, and
// which event summaries to suppress outright.
type Account struct {
	Identities     []string `json:"identities"`
	ICalURLs       []string `json:"ical-urls"`
	ExcludedEvents []string `json:"excluded-events"`
}

// Accounts is the registry of account key -> Account, loaded once at
// process start and treated as immutable for the process lifetime.
type Accounts map[string]Account

// LoadAccounts reads the JSON account registry from path.
func LoadAccounts(path string) (Accounts, error) {
	if path == "" {
		return nil, errors.New("accounts path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var accounts Accounts
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("accounts %s: %w", path, err)
	}
	return accounts, nil
}

// Lookup returns the account for key, or ErrUnknownAccount.
func (a Accounts) Lookup(key string) (Account, error) {
	acct, ok := a[key]
	if !ok {
		return Account{}, ErrUnknownAccount
	}
	return acct, nil
}

// AllURLs returns the union of every account's feed URLs, de-duplicated
// and sorted. Used for bulk cache warming.
func (a Accounts) AllURLs() []string {
	seen := make(map[string]struct{})
	urls := make([]string, 0)
	for _, acct := range a {
		for _, u := range acct.ICalURLs {
			if u == "" {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	return urls
}
