package animals

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("animal not found")
	ErrInvalidInput = errors.New("invalid input")
)

// FieldError es un problema de validación de un campo puntual.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError junta todos los problemas de un create/update.
// No cortamos en el primero: el caller puede mostrar todo de una vez.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// orNil devuelve nil si no se acumuló ningún problema.
// Importante devolver nil tipado como error, no *ValidationError nil.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidation extrae un *ValidationError de la cadena de errores.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
