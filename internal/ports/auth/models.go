package auth

// Claims es la identidad del llamador (un paciente o cuidador).
type Claims struct {
	UserID string
	Email  string
	// Source indica de dónde salió la identidad: "jwt" o "debug".
	Source string
}
