package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		writeIssues(&builder, vr.Errors)
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		writeIssues(&builder, vr.Warnings)
	}

	return builder.String()
}

func writeIssues(b *strings.Builder, issues []ValidationError) {
	for _, issue := range issues {
		b.WriteString(fmt.Sprintf("  • %s: %s\n", issue.Field, issue.Message))
		for _, suggestion := range issue.Suggestions {
			b.WriteString(fmt.Sprintf("    - %s\n", suggestion))
		}
	}
}

// ValidateConfigWithDetails checks config against the filesystem and
// reports problems that Load accepts but that will make serving or
// building misbehave.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateComponentsConfigDetails(&config.Components, result)
	validateDevelopmentConfigDetails(&config.Development, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: "ports below 1024 require elevated privileges",
			Suggestions: []string{
				"Use the default port 3000",
			},
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local development",
					"Use '0.0.0.0' to listen on all interfaces",
				},
			})
		}
	}

	for i, origin := range config.AllowedOrigins {
		if strings.Contains(origin, "://") {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   fmt.Sprintf("server.allowed_origins[%d]", i),
				Value:   origin,
				Message: "origin patterns match host names, the scheme is ignored",
				Suggestions: []string{
					"Write 'localhost:5173' instead of 'http://localhost:5173'",
				},
			})
		}
	}
}

func validateComponentsConfigDetails(config *ComponentsConfig, result *ValidationResult) {
	if !isDir(config.Dir) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "components.dir",
			Value:   config.Dir,
			Message: "directory does not exist - no components will be found",
			Suggestions: []string{
				"Create the directory: mkdir -p " + config.Dir,
				"Check for typos in the path",
			},
		})
	}

	if !isDir(config.GlobalAssetsDir) {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "components.global_assets_dir",
			Value:   config.GlobalAssetsDir,
			Message: "directory does not exist - stylesheet imports from it will fail",
			Suggestions: []string{
				"Create the directory: mkdir -p " + config.GlobalAssetsDir,
			},
		})
	}

	if config.PartialsDir != "" && !isDir(config.PartialsDir) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "components.partials_dir",
			Value:   config.PartialsDir,
			Message: "directory does not exist",
			Suggestions: []string{
				"Remove the setting if no shared partials are used",
			},
		})
	}

	for i, name := range config.Ignore {
		if strings.ContainsAny(name, `/\`) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("components.ignore[%d]", i),
				Value:   name,
				Message: "ignore entries are directory names, not paths",
				Suggestions: []string{
					"Use '" + lastSegment(name) + "'",
				},
			})
		}
	}
}

func validateDevelopmentConfigDetails(config *DevelopmentConfig, result *ValidationResult) {
	if config.HotReload && config.Debounce > 2*time.Second {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "development.debounce",
			Value:   config.Debounce,
			Message: "long debounce delays hot updates noticeably",
			Suggestions: []string{
				"Use a value between 50ms and 500ms",
			},
		})
	}
}

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}

	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func lastSegment(name string) string {
	name = strings.TrimRight(strings.ReplaceAll(name, `\`, "/"), "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
