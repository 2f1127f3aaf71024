// Package sweep animates a Julia set by moving its constant frame by frame.
//
// A Runner owns one engine.Engine for the duration of Run. For frame i it sets
// the constant to start + i*step, calculates the frame, and hands the escaped
// points to the renderer. Encoding and writing happen on an errgroup limited
// to two frames in flight, so the next frame is calculated while the previous
// one is written.
//
//	r := sweep.New(sweep.QuickSweep())
//	result, err := r.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Report())
//
// Cancelling ctx stops the sweep between frames; a frame that is being
// calculated always completes. Presets are listed by ListPresets.
package sweep
