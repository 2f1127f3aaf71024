// Package render turns the point lists produced by the engine into images.
//
// Only escaped points are drawn; everything else stays black. Palettes map
// the escape iteration to a colour, and Encode writes PNG, BMP or TIFF.
package render
