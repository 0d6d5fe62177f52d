package auth

// Credentials are the signup and login inputs. DisplayName and Avatar (a
// data:image/...;base64 URL) are only read at signup.
type Credentials struct {
	Username    string
	Password    string
	DisplayName string
	Avatar      string
}

// ProfileUpdate changes the display name and/or avatar. The avatar chain is
// re-run only when Avatar is supplied or ResetAvatar is set.
type ProfileUpdate struct {
	DisplayName *string
	Avatar      string
	ResetAvatar bool
}

// PasswordChange replaces the password after re-verifying the current one.
type PasswordChange struct {
	CurrentPassword string
	NewPassword     string
}
