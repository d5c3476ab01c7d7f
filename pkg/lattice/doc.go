// Package lattice lays out the chunked point grid that the isosurface
// kernel samples. A chunk owns a flat array of points stored x-fastest,
// then y, then z; one more point than cubes along every axis.
package lattice
