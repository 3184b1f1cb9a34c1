// Package goalarm provides one-shot microsecond alarms backed by a single
// Linux timerfd. Alarms are kept in a deadline-ordered queue; an epoll-driven
// dispatch goroutine fires due callbacks and reprograms the countdown to the
// next earliest deadline. Cancellation safely waits out callbacks running on
// other threads and never deadlocks on self-cancellation.
package goalarm
