// Package groups provisions per-project Google Groups and discovers the
// Drive files shared with them.
//
// All calls run as a service account impersonating the administrative
// identity. Expected conflicts ("group already exists", "already a
// member") come back from the API wrappers as an Outcome rather than an
// error, so the Client can treat them as success paths.
package groups
