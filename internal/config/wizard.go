package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to .docqa.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docqa! Let's configure your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding model.
	embeddingPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: []string{
			"text-embedding-3-small — fast, 1536 dimensions",
			"text-embedding-3-large — best quality, 3072 dimensions",
			"text-embedding-ada-002 — legacy, 1536 dimensions",
		},
	}
	embeddingIdx, _, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model selection: %w", err)
	}
	models := []string{"text-embedding-3-small", "text-embedding-3-large", "text-embedding-ada-002"}
	cfg.EmbeddingModel = models[embeddingIdx]

	// 2. Cache backend.
	backendPrompt := promptui.Select{
		Label: "Select cache backend",
		Items: []string{"memory", "redis"},
	}
	_, backend, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cache backend selection: %w", err)
	}
	cfg.CacheBackend = backend

	if backend == "redis" {
		addrPrompt := promptui.Prompt{
			Label:   "Redis address",
			Default: cfg.RedisAddr,
		}
		addr, err := addrPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("redis address: %w", err)
		}
		cfg.RedisAddr = addr
	}

	// 3. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory (index snapshot, database, stored files)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. Default answer language.
	languagePrompt := promptui.Prompt{
		Label:   "Default answer language (two-letter code)",
		Default: cfg.Language,
		Validate: func(s string) error {
			if len(s) != 2 {
				return fmt.Errorf("use a two-letter code like en, pl or ro")
			}
			return nil
		},
	}
	language, err := languagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}
	cfg.Language = language

	// 5. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("use a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	if os.Getenv(APIKeyEnvVar) == "" {
		fmt.Printf("\nNote: set %s in your environment before asking questions.\n", APIKeyEnvVar)
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultConfigFile)
	return cfg, nil
}
