// Package extract cleans fetched HTML into a title and markdown body.
//
// Noise elements are removed first. The main region is the first match of
// an ordered selector chain, falling back to <body> and then the whole
// document. When that region carries less visible text than MinTextChars,
// a readability pass over the original HTML replaces it; a failed pass
// keeps the selector result. The region is converted to markdown and
// normalized with mdnorm.
package extract
