// Package validation provides centralized input validation logic.
// This covers upload identifiers, bucket names, metadata and the part
// descriptor sets returned by a control plane.
//
// Inputs are validated before any byte is read or sent so a malformed
// request never reaches the object store.
package validation
