// Package runtime owns the sequence generator's lifecycle: the phase state
// machine, the seed pairs a run advances through, and the single recurring
// tick timer.
//
// Everything, including the timer handle, sits behind one mutex:
//   - At most one timer is armed at a time
//   - A command rejected for any reason leaves state untouched
//   - A tick that loses the arm/cancel race never mutates state
package runtime
