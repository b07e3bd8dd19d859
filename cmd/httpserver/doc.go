// Package main (cmd/httpserver) runs the audit record registry server.
//
// The server keeps one record per owner identity in the configured record
// stores and exposes the record API together with health, drain and pprof
// endpoints. Prometheus metrics are served on --metrics-addr.
//
// Stores are given as location URIs. The first --store is the primary and
// must be reachable at startup; further stores are best-effort mirrors:
//
//	registry-server --listen-addr=0.0.0.0:8080 \
//	    --store=file:///var/lib/audit-registry \
//	    --store=s3://audit-records/prod?region=eu-west-1 \
//	    --api-key=$API_KEY
//
// The server shuts down gracefully on SIGINT/SIGTERM.
package main
