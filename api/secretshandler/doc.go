// Package secretshandler serves the secrets API over HTTP and provides a
// matching Go client.
//
// Store and load require the X-Barnyard-Identity header; a request without it
// is rejected with 401 and never acts as the server's own identity.
//
// Other errors map to status codes as follows: access denied is 403, an
// unknown secret is 404, an invalid name is 400, an oversized body is 413,
// everything else, including failed decryption, is 500. Error bodies are JSON
// api.ErrorResponse values and never include secret material.
package secretshandler
