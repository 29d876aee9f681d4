package sqlask

import (
	"fmt"
	"strings"

	"github.com/sqlask/sqlask/internal/config"
	"github.com/sqlask/sqlask/internal/llm"
)

const apiKeyPrompt = "Enter API key for Groq:"

// EnsureAPIKey asks for the model API key with hidden input when the
// environment did not provide one.
func EnsureAPIKey(cfg *config.AIConfig, prompter Prompter) error {
	if strings.TrimSpace(cfg.APIKey) != "" {
		return nil
	}
	key, err := prompter.AskSecret(apiKeyPrompt)
	if err != nil {
		return fmt.Errorf("read api key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return llm.ErrMissingAPIKey
	}
	cfg.APIKey = key
	return nil
}
