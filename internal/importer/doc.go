// Package importer turns uploaded static files into documents that can be
// combined into one markdown file or exported as a zip, without crawling.
//
// Text and markdown files are normalized as they are. HTML files go through
// the same cleaning as crawled pages. Email (.eml) files and mailboxes
// (.mbox) become one document per message with a From/To/Date header block.
// Any other extension is read as text.
package importer
