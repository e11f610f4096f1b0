// Package agent implements the reasoning/acting core of Loom.
//
// An Agent assembles conversational context (redaction, knowledge retrieval,
// system prompt synthesis), drives a model backend and, when tools are
// registered, runs a bounded think/act/observe loop. Agents are immutable
// after construction; all per-invocation state lives on the call stack, so a
// single Agent value is safe for concurrent and repeated invocation.
//
// The Manager constructor composes agents recursively: sub-agents become
// synthesized delegation tools on an otherwise ordinary parent Agent.
package agent
