package mapmodel

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"slices"
	"unsafe"

	"github.com/paulmach/orb"
)

// Binary export format for a frozen MapModel (the "route-snapper" file a
// cmd/preprocess run produces, also embedded in project save files). Adapted
// from the teacher's CHGraph zero-copy writer/reader (pkg/graph/binary.go):
// same unsafe.Slice + CRC32-trailer shape, repurposed from the contracted
// forward/backward overlay graph to this model's plain routable edge CSR
// plus the road polylines the route snapper needs for rendering.
const (
	modelMagic   = "LTNMODEL"
	modelVersion = uint32(1)
)

type modelHeader struct {
	Magic             [8]byte
	Version           uint32
	NumIntersections  uint32
	NumRoads          uint32
	NumEdges          uint32
	NumForbiddenPairs uint32
}

// WriteBinary serializes m to w in the route-snapper export format.
func WriteBinary(w io.Writer, m *MapModel) error {
	cw := &crc32Writer{w: w, hash: crc32.NewIEEE()}

	hdr := modelHeader{
		Version:           modelVersion,
		NumIntersections:  uint32(len(m.Intersections)),
		NumRoads:          uint32(len(m.Roads)),
		NumEdges:          uint32(len(m.Edges)),
		NumForbiddenPairs: uint32(len(m.forbidden)),
	}
	copy(hdr.Magic[:], modelMagic)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	lats := make([]float64, len(m.Intersections))
	lons := make([]float64, len(m.Intersections))
	ids := make([]uint64, len(m.Intersections))
	for i, in := range m.Intersections {
		ids[i] = uint64(in.ID)
		lons[i] = in.Point[0]
		lats[i] = in.Point[1]
	}
	if err := writeUint64Slice(cw, ids); err != nil {
		return fmt.Errorf("write intersection ids: %w", err)
	}
	if err := writeFloat64Slice(cw, lats); err != nil {
		return fmt.Errorf("write intersection lats: %w", err)
	}
	if err := writeFloat64Slice(cw, lons); err != nil {
		return fmt.Errorf("write intersection lons: %w", err)
	}

	if err := writeUint32Slice(cw, m.edgeFirstOut); err != nil {
		return fmt.Errorf("write edgeFirstOut: %w", err)
	}
	if err := writeUint32Slice(cw, m.edgeHead); err != nil {
		return fmt.Errorf("write edgeHead: %w", err)
	}

	edgeRoad := make([]uint32, len(m.Edges))
	edgeTo := make([]uint32, len(m.Edges))
	edgeLen := make([]float64, len(m.Edges))
	edgeCost := make([]float64, len(m.Edges))
	edgeFlags := make([]uint32, len(m.Edges))
	for i, e := range m.Edges {
		edgeRoad[i] = uint32(e.Road)
		edgeTo[i] = uint32(m.intersectionIndex[e.To])
		edgeLen[i] = e.LengthM
		edgeCost[i] = e.BaseCostSec
		if e.Forward {
			edgeFlags[i] |= 1
		}
		if e.MainRoad {
			edgeFlags[i] |= 2
		}
	}
	if err := writeUint32Slice(cw, edgeRoad); err != nil {
		return fmt.Errorf("write edge roads: %w", err)
	}
	if err := writeUint32Slice(cw, edgeTo); err != nil {
		return fmt.Errorf("write edge targets: %w", err)
	}
	if err := writeFloat64Slice(cw, edgeLen); err != nil {
		return fmt.Errorf("write edge lengths: %w", err)
	}
	if err := writeFloat64Slice(cw, edgeCost); err != nil {
		return fmt.Errorf("write edge costs: %w", err)
	}
	if err := writeUint32Slice(cw, edgeFlags); err != nil {
		return fmt.Errorf("write edge flags: %w", err)
	}

	if err := writeRoadGeometry(cw, m.Roads); err != nil {
		return fmt.Errorf("write road geometry: %w", err)
	}

	forbidden := make([]uint64, 0, len(m.forbidden))
	for k := range m.forbidden {
		forbidden = append(forbidden, k)
	}
	slices.Sort(forbidden)
	if err := writeUint64Slice(cw, forbidden); err != nil {
		return fmt.Errorf("write forbidden transitions: %w", err)
	}

	checksum := cw.hash.Sum32()
	return binary.Write(w, binary.LittleEndian, checksum)
}

func writeRoadGeometry(w io.Writer, roads []Road) error {
	for i := range roads {
		pts := roads[i].Points
		n := uint32(len(pts))
		if err := binary.Write(w, binary.LittleEndian, n); err != nil {
			return err
		}
		lons := make([]float64, len(pts))
		lats := make([]float64, len(pts))
		for j, p := range pts {
			lons[j], lats[j] = p[0], p[1]
		}
		if err := writeFloat64Slice(w, lons); err != nil {
			return err
		}
		if err := writeFloat64Slice(w, lats); err != nil {
			return err
		}
		var roadHdr [3]uint32
		roadHdr[0] = uint32(roads[i].Class)
		roadHdr[1] = uint32(roads[i].OrigFlow)
		roadHdr[2] = 0
		if roads[i].OnewaySigned {
			roadHdr[2] = 1
		}
		if err := binary.Write(w, binary.LittleEndian, roadHdr); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, roads[i].MaxSpeedKPH); err != nil {
			return err
		}
	}
	return nil
}

// ReadBinary deserializes a MapModel previously written by WriteBinary,
// rebuilding the lookup maps and spatial index that aren't persisted.
func ReadBinary(r io.Reader) (*MapModel, error) {
	cr := &crc32Reader{r: r, hash: crc32.NewIEEE()}

	var hdr modelHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != modelMagic {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != modelVersion {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}

	ids, err := readUint64Slice(cr, int(hdr.NumIntersections))
	if err != nil {
		return nil, fmt.Errorf("read intersection ids: %w", err)
	}
	lats, err := readFloat64Slice(cr, int(hdr.NumIntersections))
	if err != nil {
		return nil, fmt.Errorf("read intersection lats: %w", err)
	}
	lons, err := readFloat64Slice(cr, int(hdr.NumIntersections))
	if err != nil {
		return nil, fmt.Errorf("read intersection lons: %w", err)
	}

	m := &MapModel{
		forbidden:         make(map[uint64]bool),
		intersectionIndex: make(map[IntersectionID]int, hdr.NumIntersections),
		roadIndex:         make(map[RoadID]int, hdr.NumRoads),
	}
	m.Intersections = make([]Intersection, hdr.NumIntersections)
	for i := range m.Intersections {
		id := IntersectionID(ids[i])
		m.Intersections[i] = Intersection{ID: id, Point: orb.Point{lons[i], lats[i]}}
		m.intersectionIndex[id] = i
	}

	m.edgeFirstOut, err = readUint32Slice(cr, int(hdr.NumIntersections)+1)
	if err != nil {
		return nil, fmt.Errorf("read edgeFirstOut: %w", err)
	}
	m.edgeHead, err = readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edgeHead: %w", err)
	}

	edgeRoad, err := readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge roads: %w", err)
	}
	edgeTo, err := readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge targets: %w", err)
	}
	edgeLen, err := readFloat64Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge lengths: %w", err)
	}
	edgeCost, err := readFloat64Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge costs: %w", err)
	}
	edgeFlags, err := readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge flags: %w", err)
	}

	m.Roads = make([]Road, hdr.NumRoads)
	for i := range m.Roads {
		pts, meta, rerr := readRoadGeometry(cr)
		if rerr != nil {
			return nil, fmt.Errorf("read road %d geometry: %w", i, rerr)
		}
		m.Roads[i] = Road{
			ID: RoadID(i), Points: pts, Class: meta.Class,
			OrigFlow: meta.OrigFlow, OnewaySigned: meta.OnewaySigned, MaxSpeedKPH: meta.MaxSpeedKPH,
			LengthMeters: polylineLength(pts),
		}
		m.roadIndex[RoadID(i)] = i
	}

	m.Edges = make([]Edge, hdr.NumEdges)
	m.roadEdges = make(map[RoadID][]uint32, hdr.NumRoads)
	for i := range m.Edges {
		m.Edges[i] = Edge{
			ID: uint32(i), Road: RoadID(edgeRoad[i]),
			To:      m.Intersections[edgeTo[i]].ID,
			LengthM: edgeLen[i], BaseCostSec: edgeCost[i],
			Forward:  edgeFlags[i]&1 != 0,
			MainRoad: edgeFlags[i]&2 != 0,
		}
		m.roadEdges[RoadID(edgeRoad[i])] = append(m.roadEdges[RoadID(edgeRoad[i])], uint32(i))
	}
	for nodeIdx := 0; nodeIdx < int(hdr.NumIntersections); nodeIdx++ {
		start, end := m.edgeFirstOut[nodeIdx], m.edgeFirstOut[nodeIdx+1]
		for _, eid := range m.edgeHead[start:end] {
			e := &m.Edges[eid]
			e.From = m.Intersections[nodeIdx].ID
			road := &m.Roads[m.roadIndex[e.Road]]
			if e.Forward {
				road.Src, road.Dst = e.From, e.To
			} else if road.Src == 0 && road.Dst == 0 {
				road.Src, road.Dst = e.To, e.From
			}
		}
	}

	rebuildIncident(m)
	buildReverseCSR(m)

	forbidden, err := readUint64Slice(cr, int(hdr.NumForbiddenPairs))
	if err != nil {
		return nil, fmt.Errorf("read forbidden transitions: %w", err)
	}
	for _, k := range forbidden {
		m.forbidden[k] = true
	}

	var storedCRC uint32
	if err := binary.Read(r, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if expected := cr.hash.Sum32(); storedCRC != expected {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expected)
	}

	m.index = buildSpatialIndex(m)
	return m, nil
}

type roadMeta struct {
	Class        RoadClass
	OrigFlow     TravelFlow
	OnewaySigned bool
	MaxSpeedKPH  float64
}

// rebuildIncident recomputes each Intersection's incident road list (not
// persisted directly) from the Src/Dst of every Road, then re-sorts it
// clockwise the same way Build does.
func rebuildIncident(m *MapModel) {
	seen := make([]map[RoadID]bool, len(m.Intersections))
	for i := range seen {
		seen[i] = make(map[RoadID]bool)
	}
	for i := range m.Roads {
		road := &m.Roads[i]
		for _, endID := range [2]IntersectionID{road.Src, road.Dst} {
			idx, ok := m.intersectionIndex[endID]
			if !ok || seen[idx][road.ID] {
				continue
			}
			seen[idx][road.ID] = true
			m.Intersections[idx].Incident = append(m.Intersections[idx].Incident, road.ID)
		}
	}
	sortIncidentClockwise(m)
}

func readRoadGeometry(r io.Reader) ([]orb.Point, roadMeta, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, roadMeta{}, err
	}
	lons, err := readFloat64Slice(r, int(n))
	if err != nil {
		return nil, roadMeta{}, err
	}
	lats, err := readFloat64Slice(r, int(n))
	if err != nil {
		return nil, roadMeta{}, err
	}
	var roadHdr [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &roadHdr); err != nil {
		return nil, roadMeta{}, err
	}
	var speed float64
	if err := binary.Read(r, binary.LittleEndian, &speed); err != nil {
		return nil, roadMeta{}, err
	}
	pts := make([]orb.Point, n)
	for i := range pts {
		pts[i] = orb.Point{lons[i], lats[i]}
	}
	meta := roadMeta{
		Class:        RoadClass(roadHdr[0]),
		OrigFlow:     TravelFlow(roadHdr[1]),
		OnewaySigned: roadHdr[2] != 0,
		MaxSpeedKPH:  speed,
	}
	return pts, meta, nil
}

// Zero-copy slice I/O, adapted from the teacher's pkg/graph/binary.go.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeUint64Slice(w io.Writer, s []uint64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readUint64Slice(r io.Reader, n int) ([]uint64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
