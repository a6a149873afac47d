// Package instrument observes calls made through provider client objects
// without caller code changes. A Registry substitutes an observing wrapper
// for a target's callable; the wrapper times the call, extracts a prompt,
// response text, and token usage via a provider Extractor, and emits a
// PromptCall event tagged with the ambient run id. Failures of the observed
// call are re-raised unchanged after an error-flavored event is emitted.
//
// Provider subpackages (openaichat, anthropicmsg) wire typed SDK clients
// through this machinery; MapExtractor covers duck-typed map payloads for
// providers without a dedicated adapter.
package instrument
