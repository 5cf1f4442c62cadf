// Package connectors provides implementations of the Connector port
// for the supported source systems. Each connector lists changed items
// against a cursor and fetches raw payloads by external id; fetched
// items flow into the normaliser registry untouched.
//
// Connectors are registered with the Factory at startup.
package connectors
