// Package pipeline runs one topomap invocation: load the grid, project and
// classify it, render the outputs and record the run.
//
// This package is the composition root: it imports terrain, render, db and
// observability, and none of those import pipeline. It owns no domain
// logic of its own.
package pipeline
