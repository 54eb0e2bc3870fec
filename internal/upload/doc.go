// Package upload posts screenshots to the ingestion endpoint as base64 JSON
// with a bearer token. It makes a single attempt; callers decide how to fall
// back.
package upload
