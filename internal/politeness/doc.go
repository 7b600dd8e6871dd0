// Package politeness decides which URLs a crawl may touch.
//
// It covers three concerns:
//   - Scope: host scoping against the seed's host and root domain or an
//     explicit allow-list, path prefixes, and a denylist of non-document
//     extensions.
//   - RobotsCache: the User-agent: * rules of each host's /robots.txt,
//     fetched once per host per run and failing open.
//   - HostGuard: the SSRF guard that refuses localhost and hosts resolving
//     to private, loopback or link-local addresses.
//
// Engine combines them behind CanVisit (frontier entries, may produce
// ledger entries) and CanEnqueue (discovered links, silent).
package politeness
