// Package httpapi provides the rate-limited, retrying JSON client shared by
// the REST and GraphQL platform connectors.
package httpapi
