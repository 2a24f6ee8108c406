package iocli

// IO - ввод/вывод команд. Позволяет подменять терминал в тестах.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	// IsInteractive reports whether prompts can be shown to a user.
	IsInteractive() bool
	Write(p []byte) (n int, err error)
}
