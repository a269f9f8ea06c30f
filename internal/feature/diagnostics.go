package feature

import (
	"fmt"

	"github.com/paulmach/osm"

	"github.com/wegman-software/osmmaps-go/internal/closer"
)

func danglingNode(way int64, node osm.NodeID) closer.Diagnostic {
	return closer.Diagnostic{
		Kind:     closer.DanglingReference,
		Severity: closer.DanglingReference.Severity(),
		Way:      way,
		Message:  fmt.Sprintf("way %d refers to missing node %d", way, node),
	}
}

func danglingWay(rel osm.RelationID, way int64) closer.Diagnostic {
	return closer.Diagnostic{
		Kind:     closer.DanglingReference,
		Severity: closer.DanglingReference.Severity(),
		Way:      way,
		Message:  fmt.Sprintf("relation %d refers to missing way %d", rel, way),
	}
}
