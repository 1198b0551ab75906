// Package preview plays binaural profiles live.
//
// A Session drives one output Device and keeps at most one oscillator graph
// alive: starting a new profile stops the old one first. Builds tagged
// headless swap the system output for a silent device.
package preview
