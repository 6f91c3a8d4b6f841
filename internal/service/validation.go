package service

import (
	"errors"
	"regexp"
	"sort"

	"github.com/dom/star-diary/internal/domain"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
	MaxDisplayName    = 50
	MaxBioLength      = 200
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Shared by self-service registration and the admin bot.
func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Username is required"),
		validation.RuneLength(MinUsernameLength, MaxUsernameLength).Error("Username must be between 3 and 30 characters"),
		validation.Match(usernamePattern).Error("Username can only contain letters, numbers, and underscores"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Password is required"),
		validation.RuneLength(MinPasswordLength, 0).Error("Password must be at least 6 characters"),
	}
}

func displayNameRules() []validation.Rule {
	return []validation.Rule{
		validation.RuneLength(0, MaxDisplayName).Error("Display name cannot exceed 50 characters"),
	}
}

func themeValues() []interface{} {
	values := make([]interface{}, 0, len(domain.AllThemes))
	for _, t := range domain.AllThemes {
		values = append(values, string(t))
	}
	return values
}

// ValidateUsername checks a username against the registration rules.
func ValidateUsername(username string) error {
	return validation.Validate(username, usernameRules()...)
}

// ValidatePassword checks a password against the registration rules.
func ValidatePassword(password string) error {
	return validation.Validate(password, passwordRules()...)
}

// validationError turns ozzo errors into a BadRequest with one detail per
// field, sorted for stable output.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fe.Error())
		}
		sort.Strings(details)
		return domain.BadRequest("Validation failed", details...)
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return err
	}
	return domain.BadRequest(err.Error(), err.Error())
}
