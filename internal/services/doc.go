// Package services provides the service registry for promptgate.
//
// The registry holds the long-lived collaborators built once at startup
// (compression, retention, regeneration, evaluation, templates, personas and
// the LLM client). Use NewRegistry() with Options, then the accessor methods
// to retrieve individual services.
package services
