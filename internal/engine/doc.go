// Package engine computes one Julia set frame in parallel.
//
// An Engine owns a worker.Pool of N workers and two channels: a task channel
// carrying one strip of the region per message, and a result channel carrying
// the escaped points of one strip. At construction it starts one long-lived
// loop per worker that receives strips, sweeps them with julia.Sweep and
// replies on the result channel.
//
// # Frames
//
// Calculate splits the current region into exactly N strips with
// julia.Partition, sends them, then waits for exactly N replies and
// concatenates them in arrival order. It is a synchronous barrier: it always
// waits for every strip, and it has no timeout.
//
//	eng, err := engine.New(complex(-1, -1), complex(1, 1), complex(-1, 0.1), 0.002)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	for frame := 0; ; frame++ {
//	    eng.SetConstant(complex(0.001*float64(frame), 0.4))
//	    points, ok, err := eng.Calculate()
//	    if err != nil {
//	        return err // the engine is unusable
//	    }
//	    if !ok {
//	        continue // nothing escaped in this region
//	    }
//	    draw(points)
//	}
//
// # Errors
//
// An empty frame is not an error. ErrEngineClosed, ErrResultsClosed and
// ErrPartitionFailed are fatal for the engine instance; Calculate never
// returns partial data alongside them.
package engine
