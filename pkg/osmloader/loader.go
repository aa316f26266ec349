// Package osmloader parses raw OSM extracts (PBF or XML) into typed
// node/way/relation records, preserving tags for downstream classification.
// It performs no geographic filtering and no highway-class filtering — that
// happens in pkg/mapmodel, which needs the full tag set to classify roads.
package osmloader

import (
	"context"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"github.com/azybler/ltn-engine/pkg/ltnerr"
)

// osmScanner is the common shape of osmpbf.Scanner and osmxml.Scanner.
type osmScanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

// Format selects the OSM wire format to parse.
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

// NodeRecord is a parsed OSM node, tags retained verbatim.
type NodeRecord struct {
	ID   osm.NodeID
	Lat  float64
	Lon  float64
	Tags osm.Tags
}

// WayRecord is a parsed OSM way, tags and node order retained verbatim.
type WayRecord struct {
	ID    osm.WayID
	Nodes []osm.NodeID
	Tags  osm.Tags
}

// RelationRecord is a parsed OSM relation, including `type=restriction`
// turn-restriction relations.
type RelationRecord struct {
	ID      osm.RelationID
	Tags    osm.Tags
	Members []osm.Member
}

// LoadResult holds every record needed by pkg/mapmodel to build a MapModel.
type LoadResult struct {
	Nodes     map[osm.NodeID]NodeRecord
	Ways      []WayRecord
	Relations []RelationRecord
}

// isHighway and isRestriction report whether a way/relation is worth
// keeping: any highway=* way (builder decides car-accessibility later), and
// any type=restriction relation.
func isHighway(tags osm.Tags) bool {
	return tags.Find("highway") != ""
}

func isRestriction(tags osm.Tags) bool {
	return tags.Find("type") == "restriction"
}

// Parse reads an OSM extract and returns every highway way, every
// restriction relation, and the coordinates of every node they reference.
// The reader is consumed twice (pass 1 scans ways/relations to discover
// which nodes are needed, pass 2 collects their coordinates), so it must
// implement io.ReadSeeker — the same two-pass shape as the teacher's
// osmpbf-only parser, generalized to cover osmxml too.
func Parse(ctx context.Context, rs io.ReadSeeker, format Format) (*LoadResult, error) {
	ways, relations, referenced, err := scanWaysAndRelations(ctx, rs, format)
	if err != nil {
		return nil, err
	}
	log.Printf("osmloader: pass 1 complete: %d ways, %d relations, %d referenced nodes",
		len(ways), len(relations), len(referenced))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, ltnerr.Wrap(ltnerr.MalformedInput, "seek for pass 2", err)
	}

	nodes, err := scanNodes(ctx, rs, format, referenced)
	if err != nil {
		return nil, err
	}
	log.Printf("osmloader: pass 2 complete: %d node coordinates collected", len(nodes))

	return &LoadResult{Nodes: nodes, Ways: ways, Relations: relations}, nil
}

func newScanner(ctx context.Context, rs io.ReadSeeker, format Format) osmScanner {
	switch format {
	case FormatXML:
		return osmxml.New(ctx, rs)
	default:
		return osmpbf.New(ctx, rs, 1)
	}
}

func scanWaysAndRelations(ctx context.Context, rs io.ReadSeeker, format Format) ([]WayRecord, []RelationRecord, map[osm.NodeID]struct{}, error) {
	scanner := newScanner(ctx, rs, format)
	if s, ok := scanner.(*osmpbf.Scanner); ok {
		s.SkipNodes = true
	}

	referenced := make(map[osm.NodeID]struct{})
	var ways []WayRecord
	var relations []RelationRecord

	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Way:
			if !isHighway(obj.Tags) || len(obj.Nodes) < 2 {
				continue
			}
			nodeIDs := make([]osm.NodeID, len(obj.Nodes))
			for i, wn := range obj.Nodes {
				nodeIDs[i] = wn.ID
				referenced[wn.ID] = struct{}{}
			}
			ways = append(ways, WayRecord{ID: obj.ID, Nodes: nodeIDs, Tags: obj.Tags})
		case *osm.Relation:
			if !isRestriction(obj.Tags) {
				continue
			}
			relations = append(relations, RelationRecord{ID: obj.ID, Tags: obj.Tags, Members: obj.Members})
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, nil, nil, ltnerr.Wrap(ltnerr.MalformedInput, "pass 1 (ways/relations)", err)
	}
	scanner.Close()

	return ways, relations, referenced, nil
}

func scanNodes(ctx context.Context, rs io.ReadSeeker, format Format, referenced map[osm.NodeID]struct{}) (map[osm.NodeID]NodeRecord, error) {
	scanner := newScanner(ctx, rs, format)
	if s, ok := scanner.(*osmpbf.Scanner); ok {
		s.SkipWays = true
		s.SkipRelations = true
	}

	nodes := make(map[osm.NodeID]NodeRecord, len(referenced))

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		nodes[n.ID] = NodeRecord{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Tags: n.Tags}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, ltnerr.Wrap(ltnerr.MalformedInput, "pass 2 (nodes)", err)
	}
	scanner.Close()

	if len(nodes) < len(referenced) {
		log.Printf("osmloader: warning: %d referenced nodes missing coordinates", len(referenced)-len(nodes))
	}

	return nodes, nil
}
