package auth

// Caller-facing messages.
const (
	msgInvalidCredentials  = "Incorrect username or password"
	msgMissingToken        = "Missing session token"
	msgSessionExpired      = "Session expired"
	msgUsernameTaken       = "Username already taken"
	msgCredentialsRequired = "Username and password are required"
	msgPasswordTooShort    = "Password must be at least 6 characters"
	msgNewPasswordTooShort = "New password must be at least 8 characters"
	msgPasswordsRequired   = "Current and new password are required"
	msgWrongPassword       = "Current password is incorrect"
	msgPasswordReused      = "New password must be different from the current password"
	msgUsernameRequired    = "Username is required"
)
