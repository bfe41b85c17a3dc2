// Package smoke checks a running instance end to end: the banner, the health
// report, a data store round trip, and a scrape parsed with the Prometheus
// text parser. It backs the "check" subcommand.
package smoke
