package authapi

import "time"

type registerRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changeUsernameRequest struct {
	Username string `json:"username"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

// userResponse is the public view of an account. Encrypted fields and the
// password hash never leave the server.
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type registerResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// profileResponse is the owner-only decrypted view returned by /api/me.
type profileResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
