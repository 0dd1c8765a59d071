package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/clive/jira-tui/internal/credentials"
	"github.com/clive/jira-tui/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidBackends returns the accepted storage.backend values
func ValidBackends() []string {
	return []string{credentials.BackendFile, credentials.BackendSQLite}
}

// Validate checks the Config for invalid values and returns all errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Value:   c.API.BaseURL,
			Message: "must be an http:// or https:// URL",
		})
	}
	if c.API.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout",
			Value:   c.API.Timeout,
			Message: "must not be negative",
		})
	}

	if !slices.Contains(ValidBackends(), c.Storage.Backend) {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Value:   c.Storage.Backend,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	if !logging.IsValidLevel(c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "must be one of debug, info, warn, error",
		})
	}

	for _, key := range c.Workflow.InstagramProjects {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, ValidationError{
				Field:   "workflow.instagram_projects",
				Value:   c.Workflow.InstagramProjects,
				Message: "project keys must not be empty",
			})
			break
		}
	}

	return errs
}
