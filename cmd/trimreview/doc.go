// Package main hosts the trimreview reviewer CLI.
//
// The Cobra command tree talks to the instruction store over HTTP. "watch"
// keeps a live grouped view through a push/poll session; pending, show,
// approve, reject, start, submit, outcome, and history are single requests.
// Configuration resolution and credential lookup live in commandContext so
// subcommands only deal with presentation.
package main
