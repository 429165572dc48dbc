// Package shopify implements the Shopify Admin GraphQL adapter.
//
// Products are pulled fifty at a time with cursor pagination and mapped to
// product resources. Price and currency always come from the first
// variant. Edits are written back with the productUpdate mutation.
package shopify
