package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/cvewatch/internal/client/iocli"
)

// EnvPassword - переменная окружения с паролем для неинтерактивного входа
const EnvPassword = "CVEWATCH_PASSWORD"

// Passwords - источники пароля, заданные флагами
type Passwords struct {
	FromFile string
	FromArgs string
}

// readPassword получает пароль из различных источников с приоритетом:
// 1. Environment variable CVEWATCH_PASSWORD
// 2. File specified in FromFile
// 3. Command-line parameter FromArgs
// 4. Interactive prompt (fallback)
func readPassword(io iocli.IO, p Passwords) (string, error) {
	// Priority 1: Environment variable
	if password := os.Getenv(EnvPassword); password != "" {
		return password, nil
	}

	// Priority 2: Password file
	if p.FromFile != "" {
		content, err := os.ReadFile(p.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if p.FromArgs != "" {
		return p.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	password, err := io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}
