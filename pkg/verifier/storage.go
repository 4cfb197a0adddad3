package verifier

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"dev/bravebird/page-verifier/pkg/models"
)

// SeedScript writes the token and the encoded user record into local storage
const SeedScript = `(token, user) => {
	localStorage.setItem('token', token);
	localStorage.setItem('user', user);
}`

const readScript = `(key) => localStorage.getItem(key)`

// SeedStorage overwrites the token and user keys in the page's local storage.
// No login request is made; only the client state a login would leave is faked.
func (v *PageVerifier) SeedStorage(page *rod.Page) error {
	user, err := encodeUser(v.scenario.Session.User)
	if err != nil {
		return err
	}

	if _, err := page.Eval(SeedScript, v.scenario.Session.Token, user); err != nil {
		return fmt.Errorf("failed to seed local storage: %w", err)
	}
	return nil
}

// ReadStorage returns the local storage value for key and whether it is set
func (v *PageVerifier) ReadStorage(page *rod.Page, key string) (string, bool, error) {
	res, err := page.Eval(readScript, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to read local storage: %w", err)
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

func encodeUser(user models.UserRecord) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user record: %w", err)
	}
	return string(data), nil
}
