package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relayhq/chatflow/pkg/flow"
	"github.com/relayhq/chatflow/pkg/models"
)

func validFlow() *models.Flow {
	return &models.Flow{
		ID:       "f1",
		TenantID: "tenant-1",
		Nodes: []*models.FlowNode{
			{ID: "start-1", Type: models.NodeTypeStart},
			{ID: "msg-1", Type: models.NodeTypeMessage, Data: models.NodeData{Message: "hi"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{ID: "c1", SourceNodeID: "start-1", TargetNodeID: "msg-1"},
			{ID: "c2", SourceNodeID: "msg-1", TargetNodeID: "end-1"},
		},
	}
}

func TestValidator(t *testing.T) {
	validator := flow.NewValidator()

	tests := []struct {
		name    string
		mutate  func(f *models.Flow)
		wantErr string
	}{
		{
			name:   "valid flow passes",
			mutate: func(_ *models.Flow) {},
		},
		{
			name:    "empty node set",
			mutate:  func(f *models.Flow) { f.Nodes = nil; f.Connections = nil },
			wantErr: "flow has no nodes",
		},
		{
			name: "missing start node",
			mutate: func(f *models.Flow) {
				f.Nodes = f.Nodes[1:]
				f.Connections = f.Connections[1:]
			},
			wantErr: "flow has no start node",
		},
		{
			name: "two start nodes",
			mutate: func(f *models.Flow) {
				f.Nodes = append(f.Nodes, &models.FlowNode{ID: "start-2", Type: models.NodeTypeStart})
				f.Connections = append(f.Connections, &models.Connection{SourceNodeID: "start-2", TargetNodeID: "msg-1"})
			},
			wantErr: "expected exactly one",
		},
		{
			name: "missing end node",
			mutate: func(f *models.Flow) {
				f.Nodes = f.Nodes[:2]
				f.Connections = f.Connections[:1]
			},
			wantErr: "flow has no end node",
		},
		{
			name: "dangling connection source",
			mutate: func(f *models.Flow) {
				f.Connections = append(f.Connections, &models.Connection{SourceNodeID: "ghost", TargetNodeID: "end-1"})
			},
			wantErr: "non-existent source node",
		},
		{
			name: "dangling connection target",
			mutate: func(f *models.Flow) {
				f.Connections[1].TargetNodeID = "ghost"
			},
			wantErr: "non-existent target node",
		},
		{
			name: "duplicate node id",
			mutate: func(f *models.Flow) {
				f.Nodes = append(f.Nodes, &models.FlowNode{ID: "msg-1", Type: models.NodeTypeMessage})
			},
			wantErr: "duplicate node ID",
		},
		{
			name: "node with empty type",
			mutate: func(f *models.Flow) {
				f.Nodes[1].Type = ""
			},
			wantErr: "no type specified",
		},
		{
			name: "non-condition node with two outgoing edges",
			mutate: func(f *models.Flow) {
				f.Connections = append(f.Connections, &models.Connection{SourceNodeID: "msg-1", TargetNodeID: "end-1"})
			},
			wantErr: "expected exactly one",
		},
		{
			name: "node with no outgoing edge",
			mutate: func(f *models.Flow) {
				f.Connections = f.Connections[:1]
			},
			wantErr: "no outgoing connection",
		},
		{
			name: "terminal node with outgoing edge",
			mutate: func(f *models.Flow) {
				f.Connections = append(f.Connections, &models.Connection{SourceNodeID: "end-1", TargetNodeID: "msg-1"})
			},
			wantErr: "must not have outgoing connections",
		},
		{
			name: "condition node without outgoing edges",
			mutate: func(f *models.Flow) {
				f.Nodes = append(f.Nodes, &models.FlowNode{ID: "cond-1", Type: models.NodeTypeCondition})
			},
			wantErr: "condition node cond-1 has no outgoing connections",
		},
		{
			name: "condition node may branch",
			mutate: func(f *models.Flow) {
				f.Nodes = append(f.Nodes, &models.FlowNode{ID: "cond-1", Type: models.NodeTypeCondition})
				f.Connections[1].TargetNodeID = "cond-1"
				f.Connections = append(f.Connections,
					&models.Connection{SourceNodeID: "cond-1", TargetNodeID: "end-1", SourceHandle: "c1"},
					&models.Connection{SourceNodeID: "cond-1", TargetNodeID: "end-1", SourceHandle: models.ElseHandle},
				)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFlow()
			tt.mutate(f)

			err := validator.Validate(f)

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
