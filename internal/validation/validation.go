package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// CVEIDPattern определяет формат идентификатора CVE: CVE-YYYY-NNNN, номер от 4 цифр
var CVEIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// MaxUsernameLen ограничивает длину username (username или email)
const MaxUsernameLen = 254

// ValidateCredentials проверяет, что username и password заданы.
// Пробелы по краям не считаются символами, как в форме входа веб-клиента.
func ValidateCredentials(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}

// NormalizeCVEID приводит идентификатор к верхнему регистру и проверяет формат
func NormalizeCVEID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return "", fmt.Errorf("CVE ID cannot be empty")
	}
	if !CVEIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid CVE ID %q: expected format CVE-YYYY-NNNN", id)
	}
	return id, nil
}
