package api

// IdentityHeader carries the caller identity on secret requests.
const IdentityHeader = "X-Barnyard-Identity"

// StoreSecretResponse is returned after a secret has been stored.
type StoreSecretResponse struct {
	// Name is the secret name as given in the request path.
	Name string `json:"name"`

	// Resource is the path the caller was granted read access to.
	Resource string `json:"resource"`
}

// ListSecretsResponse lists the names of all stored secrets.
type ListSecretsResponse struct {
	Names []string `json:"names"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
