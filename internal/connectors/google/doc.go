// Package google provides shared infrastructure for the Google API connectors.
//
// This package contains common utilities used by the drive and groups
// connectors including:
//   - Service factories for user-token and service-account clients
//   - Error classification for common Google API errors (401, 403, 404, 409, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
//	svc, err := google.NewDriveService(ctx, ts, retryTransport)
//
// # OAuth2 Scopes
//
// User consent requests:
//   - https://www.googleapis.com/auth/drive.readonly
//   - https://www.googleapis.com/auth/drive.metadata.readonly
//
// The service account is delegated the ServiceAccountScopes.
package google
