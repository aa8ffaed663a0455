// Package geotag turns a single image file into a geotagged Record.
//
// Classification never fails: a file either yields a Record or is skipped
// with a Reason. Embedded metadata is read through a Reader backend chosen
// once at startup with Open.
package geotag
