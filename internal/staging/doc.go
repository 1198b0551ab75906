// Package staging inspects and prunes engine staging directories left
// behind by processes that exited without terminating their engine.
package staging
