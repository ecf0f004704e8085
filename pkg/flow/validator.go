package flow

import (
	"errors"
	"fmt"

	"github.com/relayhq/chatflow/pkg/models"
)

// Validator checks that a flow's graph is structurally sound before it can be
// activated. The interpreter still tolerates broken graphs at run time; this
// keeps them out of the active set in the first place.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate rejects flows the interpreter could not execute deterministically.
func (v *Validator) Validate(flow *models.Flow) error {
	if len(flow.Nodes) == 0 {
		return errors.New("flow has no nodes")
	}

	nodeIDs := make(map[string]bool, len(flow.Nodes))
	startCount := 0
	endCount := 0

	for _, node := range flow.Nodes {
		if node.ID == "" {
			return errors.New("found node with empty ID")
		}

		if node.Type == "" {
			return fmt.Errorf("node %s has no type specified", node.ID)
		}

		if nodeIDs[node.ID] {
			return fmt.Errorf("duplicate node ID: %s", node.ID)
		}

		nodeIDs[node.ID] = true

		switch node.Type {
		case models.NodeTypeStart:
			startCount++
		case models.NodeTypeEnd:
			endCount++
		}
	}

	if startCount == 0 {
		return errors.New("flow has no start node")
	}

	if startCount > 1 {
		return fmt.Errorf("flow has %d start nodes, expected exactly one", startCount)
	}

	if endCount == 0 {
		return errors.New("flow has no end node")
	}

	for _, conn := range flow.Connections {
		if !nodeIDs[conn.SourceNodeID] {
			return fmt.Errorf("connection references non-existent source node: %s", conn.SourceNodeID)
		}

		if !nodeIDs[conn.TargetNodeID] {
			return fmt.Errorf("connection references non-existent target node: %s", conn.TargetNodeID)
		}
	}

	return v.validateOutgoing(flow)
}

// validateOutgoing enforces edge counts per node type: condition nodes branch,
// terminal nodes have no outgoing edge, everything else has exactly one.
// Multiple edges from a non-condition node would make advancement
// order-dependent, so they are rejected here instead of tie-broken at run time.
func (v *Validator) validateOutgoing(flow *models.Flow) error {
	for _, node := range flow.Nodes {
		outgoing := flow.OutgoingConnections(node.ID)

		switch node.Type {
		case models.NodeTypeCondition:
			if len(outgoing) == 0 {
				return fmt.Errorf("condition node %s has no outgoing connections", node.ID)
			}
		case models.NodeTypeEnd, models.NodeTypeAssignAgent:
			if len(outgoing) > 0 {
				return fmt.Errorf("terminal node %s must not have outgoing connections", node.ID)
			}
		default:
			if len(outgoing) == 0 {
				return fmt.Errorf("node %s has no outgoing connection", node.ID)
			}

			if len(outgoing) > 1 {
				return fmt.Errorf("node %s has %d outgoing connections, expected exactly one", node.ID, len(outgoing))
			}
		}
	}

	return nil
}
