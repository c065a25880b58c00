// Package lookup implements the identity resolver.
//
// Resolve classifies a raw query and, when it is a phone number or a
// name, issues a single GET to the lookup endpoint with the trimmed query
// as the q parameter. The request races a timer (4.5 seconds by default);
// whichever settles first decides the outcome and the other is discarded.
//
// The response is reduced to one of:
//
//   - Exact: the service returned a single record
//   - Candidates: no exact record, one or more name candidates
//   - NoMatch: neither
//   - Invalid: the query was rejected locally, no request was made
//   - Failure: timeout, transport error, malformed body, or ok=false
//
// Resolve never returns an error; failures are values carrying the
// message to show the user.
package lookup
