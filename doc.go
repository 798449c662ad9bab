// Package capture records frames from camera viewports of a running
// real-time application and saves them as still images or looping
// animations without stalling the render loop.
//
// # Overview
//
// A Capture owns every piece of pipeline state. The host drives it from two
// phases of its main loop:
//
//   - RenderPhase reads back the offscreen target of each active recorder
//     and hands the pixels to the simulation phase through a shared,
//     most-recent-wins store.
//   - Update runs once per simulation tick. It mirrors tracked camera
//     geometry onto recorder cameras, tears down recorders whose camera is
//     gone, moves handed-off frames into each recorder's time-windowed ring
//     buffer, applies queued requests and releases finished jobs.
//
// Capture requests only take frames; encoding and writing happen on a
// worker pool.
//
// # Quick Start
//
//	scene := camera.NewMemScene()
//	cam := scene.Add(camera.Geometry{Projection: camera.Orthographic{
//	    Left: -400, Right: 400, Bottom: -300, Top: 300,
//	}})
//
//	c, err := capture.New(capture.DefaultConfig(), capture.PixmapHost(scene, capture.DefaultConfig()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close(context.Background())
//
//	c.StartTracking(capture.StartTracking{Camera: cam, ID: 1, Window: 3 * time.Second})
//	for range frames {
//	    // draw into the targets of scene.Recorders() ...
//	    c.RenderPhase(ctx)
//	    c.Update(dt)
//	}
//	out := <-c.CaptureGIF(1, "clip.gif")
//
// # Outcomes
//
// Every request method returns a Ticket that receives exactly one Outcome:
// when the request is applied for tracking requests, or when the job has
// written its file for capture requests. Tickets are buffered; callers may
// ignore them.
//
// # Formats
//
// Output formats implement encode.Encoder and are looked up by name.
// "png" and "gif" are built in; others are added with WithEncoder or by
// registering them with the encode package.
package capture
