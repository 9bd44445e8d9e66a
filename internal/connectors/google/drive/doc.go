// Package drive reads Google Drive metadata and content.
//
// Files lists and inspects items with a user's access token. Fetch
// downloads or exports content with whatever credentials the given
// service carries.
package drive
