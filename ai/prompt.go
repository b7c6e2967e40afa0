package ai

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"greenhouse-assistant/backend/pkg/logger"
)

// Acknowledgment is the canned model reply that closes the priming exchange
const Acknowledgment = "Understood. I'm ready to help you with everything related to your greenhouse. How can I help you?"

// DefaultSystemPrompt is used when no prompt file is available
const DefaultSystemPrompt = `You are an expert assistant in greenhouse agriculture and plant monitoring systems.

Your job is to help users:
- Interpret sensor data (temperature, humidity, light, soil moisture)
- Analyze plant health
- Provide recommendations on crop care
- Detect problems and suggest solutions

Answer clearly, concisely and professionally. If you do not have enough information, ask the user for more details.`

// LoadSystemPrompt reads the prompt file at path. A missing file falls back
// to DefaultSystemPrompt with a warning; other read errors are returned.
func LoadSystemPrompt(path string, log *logger.Logger) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if log != nil {
			log.Warn("Prompt file not found, using default prompt", "path", path)
		}
		return DefaultSystemPrompt, nil
	}
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt, nil
	}
	return prompt, nil
}
