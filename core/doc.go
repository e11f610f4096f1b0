// Package core defines the shared data model of Loom: conversational
// messages, token accounting and the collaborator contracts (knowledge
// retrieval, redaction) that the engine consumes but does not implement.
//
// Everything in this package is a plain immutable value. Messages are never
// mutated in place; transformations such as redaction produce a new Message.
package core
