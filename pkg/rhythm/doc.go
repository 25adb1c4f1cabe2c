// ABOUTME: Package doc for the public engine API
// ABOUTME: Session is the only surface external callers use
//
// Package rhythm provides the session controller for the timing and
// note-matching engine: configure a tempo and note chart, start the
// drift-free beat stream with click playback, and submit input hits to
// be classified against the chart.
package rhythm
