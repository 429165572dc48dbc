// Package google provides shared infrastructure for Google API connectors.
//
// It contains:
//   - token sources built from connection parameters (static access token
//     or an OAuth2 refresh token)
//   - service factories for Google API clients
//   - mapping of googleapi errors to domain errors
//   - rate limiting to respect Google API quotas
//
// # Usage
//
//	ts, err := google.NewTokenSource(ctx, conn)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// The Drive adapter needs https://www.googleapis.com/auth/drive to write
// names and descriptions back. Read-only connections can use drive.readonly.
package google
