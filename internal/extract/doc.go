// Package extract converts source documents into plain text for
// chunking.
//
// Extraction is a capability keyed by file extension. Formats without a
// compiled-in parser still get an extractor, one that reports a labeled
// missing_dep failure, so unsupported documents show up in the failure
// log instead of vanishing silently from the corpus.
package extract
