package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/idgames/internal/idgames"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// responseErr turns an error-tagged response into an error for display.
func responseErr(resp *idgames.Response) error {
	if resp == nil || !resp.HasError() {
		return nil
	}
	switch {
	case resp.ErrorType != "" && resp.ErrorMessage != "":
		return fmt.Errorf("%s: %s", resp.ErrorType, resp.ErrorMessage)
	case resp.ErrorMessage != "":
		return errors.New(resp.ErrorMessage)
	default:
		return errors.New(resp.ErrorType)
	}
}

var errNoFile = errors.New("response contains no file")
