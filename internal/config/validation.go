package config

import "fmt"

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// The Gemini API key is deliberately not validated here: the key is only
// required when a real model client is constructed, and the server can run
// without one (chat endpoints then answer 503). See gemini.New.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity),
	// per the Gemini API documentation.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens range: 1 to 2097152 (Gemini max context window).
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.MaxSessions < 1 || c.MaxSessions > 1_000_000 {
		return fmt.Errorf("%w: must be between 1 and 1,000,000, got %d", ErrInvalidMaxSessions, c.MaxSessions)
	}

	if c.SessionTimeoutHours < 1 || c.SessionTimeoutHours > 24*30 {
		return fmt.Errorf("%w: must be between 1 and 720 hours, got %d", ErrInvalidSessionTimeout, c.SessionTimeoutHours)
	}

	if c.MaxMessagesPerSession < 1 || c.MaxMessagesPerSession > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d", ErrInvalidMaxMessages, c.MaxMessagesPerSession)
	}

	return nil
}
