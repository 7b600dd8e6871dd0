// Package config holds the crawl configuration: defaults, clamping and
// validation, parsing of HTTP form and JSON options, the public-URL check
// applied before any crawl, and the optional .webkb.yaml file with per-host
// overrides.
package config
