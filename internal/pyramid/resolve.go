package pyramid

import (
	"math"

	"github.com/pspoerri/rastertiles/internal/container"
	"github.com/pspoerri/rastertiles/internal/errs"
)

// ResolveStatus distinguishes, for callers that care (server metrics,
// debug logging), whether a resolved reference is an exact level match,
// a nearest-resolution substitute, or the level's nodata tile.
type ResolveStatus int

const (
	Exact ResolveStatus = iota
	NearestFallback
	NodataFallback
)

func (s ResolveStatus) String() string {
	switch s {
	case Exact:
		return "exact"
	case NearestFallback:
		return "nearest_fallback"
	case NodataFallback:
		return "nodata_fallback"
	default:
		return "unknown"
	}
}

// TileReference locates one tile's payload inside a container file: the
// two offset-table byte positions a reader resolves to find the actual
// payload offset and length, plus the metadata needed to decode or
// re-header it.
type TileReference struct {
	ContainerPath  string
	OffsetFieldPos int64
	SizeFieldPos   int64
	TileWidth      int
	TileHeight     int
	Channels       int
	MimeType       string
	Encoding       string
}

// Pyramid is an immutable, shared-by-reference collection of Levels
// built once at startup. TileMatrix, containers, and codec tables never
// change after construction; concurrent resolve calls need no lock
// beyond the one inside the container cache.
type Pyramid struct {
	levels map[string]*Level
	order  []*Level // ascending by resolution, for nearest-fallback search
	cache  *containerCache
}

// New builds a Pyramid over levels, which need not be sorted by the
// caller.
func New(levels []Level) *Pyramid {
	p := &Pyramid{levels: make(map[string]*Level, len(levels)), cache: newContainerCache()}
	for i := range levels {
		lv := levels[i]
		p.levels[lv.Matrix.ID] = &lv
		p.order = append(p.order, &lv)
	}
	for i := 1; i < len(p.order); i++ {
		for j := i; j > 0 && p.order[j-1].Matrix.Resolution > p.order[j].Matrix.Resolution; j-- {
			p.order[j-1], p.order[j] = p.order[j], p.order[j-1]
		}
	}
	return p
}

// Close releases every container handle the pyramid has opened.
func (p *Pyramid) Close() error {
	return p.cache.closeAll()
}

// Resolve implements spec section 4.8: an exact tileMatrixID match
// resolves directly; otherwise the finest level is chosen (see
// nearestLevel) and the result, tagged NearestFallback, points at that
// level's nodata tile, since a tileMatrixID miss means the caller asked
// for a level this pyramid never built.
func (p *Pyramid) Resolve(tileMatrixID string, x, y int) (TileReference, ResolveStatus, error) {
	if lv, ok := p.levels[tileMatrixID]; ok {
		ref, err := p.resolveInLevel(lv, x, y)
		if err != nil {
			return TileReference{}, Exact, err
		}
		return ref, Exact, nil
	}

	lv, status := p.nearestLevel(tileMatrixID)
	if lv == nil {
		return TileReference{}, NodataFallback, errs.New(errs.NotFound, "pyramid.Resolve", nil)
	}
	ref := p.nodataReference(lv)
	return ref, status, nil
}

// nearestLevel picks the level whose resolution is nearest to the
// (unresolvable) requested tileMatrixID's resolution. Since the
// requested matrix has no corresponding Level, there is no numeric
// resolution to compare against directly; per spec 4.8 bullet 1, the
// fallback is coarsest-for-coarser-requests, finest-for-finer-requests.
// Without a parseable requested resolution the only information left is
// the ID itself, so this resolves to the finest level, matching the
// "oversample, don't undersample" decision recorded for the halfway
// case in the full specification.
func (p *Pyramid) nearestLevel(tileMatrixID string) (*Level, ResolveStatus) {
	if len(p.order) == 0 {
		return nil, NodataFallback
	}
	return p.order[0], NearestFallback
}

// ResolveByResolution is the numeric counterpart of Resolve: given a
// target ground resolution rather than a tileMatrixID, it picks the
// level whose resolution is closest, resolving an exact tie in favor of
// the finer (smaller-resolution) level.
func (p *Pyramid) ResolveByResolution(targetResolution float64, x, y int) (TileReference, ResolveStatus, error) {
	if len(p.order) == 0 {
		return TileReference{}, NodataFallback, errs.New(errs.NotFound, "pyramid.ResolveByResolution", nil)
	}

	best := p.order[0]
	bestDelta := math.Abs(best.Matrix.Resolution - targetResolution)
	for _, lv := range p.order[1:] {
		delta := math.Abs(lv.Matrix.Resolution - targetResolution)
		switch {
		case delta < bestDelta:
			best, bestDelta = lv, delta
		case delta == bestDelta && lv.Matrix.Resolution < best.Matrix.Resolution:
			best = lv
		}
	}

	ref, err := p.resolveInLevel(best, x, y)
	if err != nil {
		return TileReference{}, NodataFallback, err
	}
	return ref, Exact, nil
}

func (p *Pyramid) resolveInLevel(lv *Level, x, y int) (TileReference, error) {
	cx, cy, localX, localY := lv.containerCoords(x, y)
	path := lv.ResolvePath(cx, cy)

	ct, err := p.cache.open(path, lv.TilesPerContW, lv.TilesPerContH, lv.containerGeometry(), lv.Encoding, lv.MimeType)
	if err != nil {
		return TileReference{}, err
	}

	if _, _, err := ct.Locate(localX, localY); err != nil {
		return TileReference{}, err
	}
	offsetPos, sizePos := tableFieldPositions(ct, localX, localY)

	return TileReference{
		ContainerPath: path, OffsetFieldPos: offsetPos, SizeFieldPos: sizePos,
		TileWidth: lv.Matrix.TileWidth, TileHeight: lv.Matrix.TileHeight,
		Channels: lv.Channels, MimeType: lv.MimeType, Encoding: lv.Encoding,
	}, nil
}

// nodataReference points at the single-tile nodata container declared
// for lv, per spec 4.8's nodata_tile: posoff=2048, possize=2052.
func (p *Pyramid) nodataReference(lv *Level) TileReference {
	return TileReference{
		ContainerPath:  lv.NodataPath,
		OffsetFieldPos: container.HeaderSize,
		SizeFieldPos:   container.HeaderSize + 4,
		TileWidth:      lv.Matrix.TileWidth, TileHeight: lv.Matrix.TileHeight,
		Channels: lv.Channels, MimeType: lv.MimeType, Encoding: lv.Encoding,
	}
}

// tableFieldPositions computes the byte offsets of the two table slots
// for tile (x,y), per the container layout of spec section 4.8:
// n = (y mod H)*W + (x mod W), posoff = 2048+4n, possize = posoff+4*W*H.
// Locate has already range-checked (x,y) against the container's grid.
func tableFieldPositions(ct *container.Container, x, y int) (offsetPos, sizePos int64) {
	n := int64((y%ct.TilesHigh)*ct.TilesWide + (x % ct.TilesWide))
	t := int64(ct.TilesWide * ct.TilesHigh)
	offsetPos = container.HeaderSize + 4*n
	sizePos = offsetPos + 4*t
	return
}
