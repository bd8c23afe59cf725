// Package auth provides authentication and authorization for the admin API.
//
// Accounts are stored locally. Passwords are hashed with Argon2id and an optional
// TOTP second factor can be enabled per user.
//
// # Tokens
//
// A successful login issues an HS256 signed JWT carrying the user id, email and
// role. Tokens are stateless and expire after Auth.TokenTTL.
//
// # Middleware
//
// Fiber middleware functions are provided for route protection:
//   - RequireAuth: rejects requests without a valid bearer token and stores the claims in the context
//   - OptionalAuth: stores the claims when a valid token is present, never rejects
//   - RequireRole: allows only the listed roles, must run after RequireAuth
//
// Example usage:
//
//	jwtManager, err := auth.NewJWTManager(cfg.Auth)
//	admin := app.Group("/api/admin", auth.RequireAuth(jwtManager))
//	admin.Delete("/settings/:key", auth.RequireRole(models.RoleAdmin), handler)
package auth
