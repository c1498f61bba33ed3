// Package auth authenticates users against a directory of stored
// credentials, issues short lived HMAC signed access tokens alongside
// persisted refresh tokens, enforces a failed login lockout policy, and
// validates bearer tokens on inbound requests.
//
// The package is organized around a small set of collaborators:
//
//   - DeriveSigningKey and friends manage the symmetric signing secret.
//   - CredentialVerifier checks a username/password pair against the
//     DirectoryStore and derives the caller's authority set.
//   - LockoutTracker owns the per account attempt counter and the
//     ACTIVE -> BLOCKED transition, persisted atomically.
//   - TokenService issues and verifies access and refresh tokens. Refresh
//     issuance always records the token through the RefreshTokens store.
//   - Auther ties the above together into Login, Refresh, and Logout.
//
// HTTP integration lives in two cooperating stages: RegisterAuthRoutes
// mounts the login endpoints, and middleware/authware validates bearer
// tokens on every other request.
package auth
