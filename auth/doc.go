// Package auth guards administrative endpoints with bearer JWTs.
//
// Tokens are verified either with a shared HMAC secret or against a
// remote JWKS that is refreshed in the background. A verified token
// becomes an [Identity] carried on the request context; [RequireRole]
// rejects requests whose identity lacks a role.
package auth
