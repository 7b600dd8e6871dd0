// Package main provides the entry point for the webkb CLI.
//
// webkb crawls a website and turns it into a single markdown knowledge
// base. It can also serve the same functions over HTTP and convert local
// documents (text, HTML, email, mbox) into markdown.
//
// Usage:
//
//	webkb crawl https://docs.example.com/
//	webkb serve --listen :8000
//	webkb import notes.txt mail.mbox -o combined.md
//
// See --help for all available options.
package main

func main() {
	Execute()
}
