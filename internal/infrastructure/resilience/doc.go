/*
Package resilience provides a circuit breaker for best-effort operations.

# Overview

Some process statistics are optional: reading them may fail on one platform
or under one sandbox and succeed elsewhere. The breaker lets a caller stop
retrying such a read on every tick once it has failed a few times in a row,
and try again after a cool-down.

# Usage

	breaker := resilience.New("open_fds", resilience.Settings{
		FailureThreshold: 3,
		CoolDown:         time.Minute,
	})

	err := breaker.Execute(func() error {
		n, err := readOpenFDs()
		if err != nil {
			return err
		}
		fds = n
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// skipped, still cooling down
	}

# States

	Closed --[threshold failures]-> Open --[cool-down]-> Half-Open --[success]-> Closed
	                                  ^                      |
	                                  +------[failure]-------+

While half-open exactly one call is let through as a probe; concurrent
callers get ErrCircuitOpen until it finishes.
*/
package resilience
