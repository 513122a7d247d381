// Package volatility computes a simplified volatility figure per instrument
// across many price files in parallel.
//
// The volatility of a series is (max-min)/mid*100 where mid is (max+min)/2.
// A series whose spread or midpoint is zero is degenerate and lands in the
// zero set rather than the ranked record.
//
// A Coordinator runs one goroutine per files.FileGroup. Workers share no
// memory; each sends exactly one WorkerResult on a channel sized to the number
// of workers. The coordinator merges results into an Aggregate as they arrive
// and stops draining once no worker is alive and the channel is empty:
//
//	coord := volatility.NewCoordinator(
//	    volatility.WithDrainMode(volatility.DrainSignal),
//	    volatility.WithLogger(logger),
//	)
//	agg, stats, err := coord.Run(ctx, groups)
//
// In DrainPoll mode the coordinator receives with a timeout and checks
// liveness on every timeout. DrainSignal replaces the timeout with a channel
// closed once every worker goroutine has returned.
package volatility
