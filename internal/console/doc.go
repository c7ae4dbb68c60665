// Package console is the interactive front end: a prompt-driven line loop
// on stdin, one thin handler per verb, and a printer rendering emitted
// blocks.
//
// Handlers do three things only: parse their argument strings, call the
// runtime, and return the one-line status to show. They hold no state of
// their own, so every behavior the console exposes is the runtime's
// behavior. Rejected commands (bad seed, non-numeric argument, verb not
// legal in the current phase) become a single feedback line and change
// nothing.
package console
