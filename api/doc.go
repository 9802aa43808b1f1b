/*
Package api holds the shared request and response types and the HTTP server
configuration for barnyard's serve mode.

The secretshandler subpackage implements the request handlers and a Go client
for them:

	PUT /api/secrets/{name}   store the request body as secret {name}
	GET /api/secrets/{name}   return the plaintext of secret {name}
	GET /api/secrets          list stored secret names

Callers identify themselves with the X-Barnyard-Identity header. Store and
load requests without it are rejected.
*/
package api
