package config

import (
	"fmt"
	"os"
)

// secretFromEnv reads varname and removes its value from the environment,
// so child processes and later lookups cannot see it.
func secretFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) ([]byte, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	if varname == "" {
		return nil, fmt.Errorf("%w: no environment variable name", ErrMissingSecret)
	}
	val := getfn(varname)
	err := setfn(varname, "")
	if err != nil {
		return nil, fmt.Errorf("unable to clear %v, cause %w", varname, err)
	}
	if len(val) == 0 {
		return nil, fmt.Errorf("%w: %v is empty", ErrMissingSecret, varname)
	}
	return []byte(val), nil
}
