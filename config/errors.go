package config

import "fmt"

// ConfigurationError reports a missing or invalid setting. Variable is the
// environment variable the operator has to set.
type ConfigurationError struct {
	Variable string
	Message  string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Variable == "":
		return e.Message
	case e.Message == "":
		return fmt.Sprintf("missing configuration: %s", e.Variable)
	}
	return fmt.Sprintf("%s. Please set %s in your environment variables.", e.Message, e.Variable)
}
