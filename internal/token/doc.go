// Package token caches the bearer token sent with uploads. Tokens come from
// an external command (gcloud by default); a JWT's exp claim shortens the
// cache window so an expired credential is never reused.
package token
