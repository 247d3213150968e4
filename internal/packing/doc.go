// Package packing recommends shipping boxes and computes 3-D packing
// arrangements. It holds the box catalog and selector, the volume and padding
// estimator, the bin packer and the plan assembler. Every operation is
// stateless: catalogs and tuning values are passed in and never mutated.
package packing
