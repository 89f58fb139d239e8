package auth

// Claims representa la información extraída del token.
// UserID es el owner con el que se scopea todo acceso a animales.
type Claims struct {
	UserID string
	Email  string
}
