package consult

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type ValidationError struct {
	Message string
	// 0 если длина не при чём
	Length int
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validate(message string, maxLength int) (string, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return "", &ValidationError{Message: "El mensaje no puede estar vacío"}
	}

	if n := utf8.RuneCountInString(msg); n > maxLength {
		return "", &ValidationError{
			Message: fmt.Sprintf("El mensaje excede el límite de %d caracteres", maxLength),
			Length:  n,
		}
	}
	return msg, nil
}
