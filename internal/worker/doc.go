// Package worker provides a fixed-size goroutine pool for job execution.
//
// The Pool starts its workers as soon as it is created. Workers share one
// buffered job channel, so every job is received by exactly one worker.
// Execute never waits for a job to run.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	defer pool.Close()
//
//	for i := 0; i < 100; i++ {
//	    if err := pool.Execute(func() {
//	        // do work
//	    }); err != nil {
//	        return err
//	    }
//	}
//
// # Configuration
//
// Use NewPoolWithConfig for custom settings:
//
//	config := worker.PoolConfig{
//	    NumWorkers:  8,
//	    QueueFactor: 200, // Queue size = 8 * 200 = 1600
//	}
//	pool := worker.NewPoolWithConfig(config)
//
// # Shutdown
//
// Close rejects further jobs, lets every worker finish the job it is running
// and joins all of them exactly once. Jobs still waiting in the queue are
// dropped, never started.
package worker
