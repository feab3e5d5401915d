// Package mandel evaluates points of the complex plane against the Mandelbrot
// iteration z ← z² + c and describes rectangular regions of that plane.
//
// # Escape Time
//
// [Escape] returns how many iterations a point survives before its orbit
// leaves the disk of radius 2. A point that survives the whole budget is
// classified as inside the set:
//
//	n := mandel.Escape(complex(-0.75, 0.1), 300)
//	inside := n == 300
//
// # Regions
//
// [Bounds] is the rectangle that an image grid is mapped onto. [FullView]
// covers the whole set; a handful of well-known landmarks are available by
// name through [LookupRegion]:
//
//	b, ok := mandel.LookupRegion("seahorse-valley")
package mandel
