// Package identity holds the identity model of the registration flow.
//
// A raw query typed by the user is trimmed and classified as a phone
// number, a name, or invalid input. The remote lookup answers with
// candidates; a candidate becomes the session's resolved Record through
// Project, which applies the jersey field fallbacks:
//
//   - an empty jersey name falls back to the person's name
//   - an absent or null jersey number becomes the empty string
//
// Candidates are only ever produced by decoding a lookup response.
package identity
