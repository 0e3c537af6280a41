package raster

// Reprojector is the seam to coordinate-reference-system reprojection,
// treated everywhere in this repository as an external pure function.
// No implementation lives here; a caller outside the raster pipeline
// supplies one when warped nodes are actually needed.
type Reprojector interface {
	Reproject(src Node, srcSRS, dstSRS string, bbox BBox, width, height int) (Node, error)
}

// WarpedNode marks a Node as the output of a Reprojector, so callers
// can distinguish it from a direct file-backed or merged node without
// depending on the reprojection implementation itself.
type WarpedNode struct {
	Node
	SourceSRS, TargetSRS string
}
