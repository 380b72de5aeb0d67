// Package credential resolves the dashboard login credentials.
package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted when credentials are not passed explicitly.
const (
	EnvUsername = "AUTERION_USERNAME"
	EnvPassword = "AUTERION_PASSWORD"
)

// ErrCredentialsMissing is returned when no username or password could be resolved.
var ErrCredentialsMissing = errors.New("username and password must be provided")

var validate = validator.New()

// Credentials are the login email and password for the dashboard.
type Credentials struct {
	// Username is the login email address
	Username string `validate:"required"`

	// Password is the login password
	Password string `validate:"required"`
}

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Resolve returns credentials from the explicit values, falling back per
// field to the environment. A nil lookup uses os.LookupEnv.
func Resolve(username, password string, lookup LookupFunc) (Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if username == "" {
		username, _ = lookup(EnvUsername)
	}
	if password == "" {
		password, _ = lookup(EnvPassword)
	}

	c := Credentials{Username: username, Password: password}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Validate checks that both fields are set.
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s is empty", ErrCredentialsMissing, verrs[0].Field())
		}
		return fmt.Errorf("%w: %v", ErrCredentialsMissing, err)
	}
	return nil
}

// String hides the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%s/****", c.Username)
}
