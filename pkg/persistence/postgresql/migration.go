package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				channel VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				trigger_config JSONB NOT NULL DEFAULT '{}',
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				default_messages JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_tenant_channel ON flows(tenant_id, channel);
			CREATE INDEX idx_flows_status ON flows(status);
			CREATE INDEX idx_flows_created_at ON flows(created_at);
			CREATE INDEX idx_flows_deleted_at ON flows(deleted_at);

			CREATE TABLE sessions (
				id UUID PRIMARY KEY,
				flow_id UUID NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				contact_id VARCHAR(255) NOT NULL,
				conversation_id VARCHAR(255),
				current_node_id VARCHAR(255) NOT NULL,
				awaiting_input BOOLEAN NOT NULL DEFAULT false,
				variables JSONB NOT NULL DEFAULT '{}',
				history JSONB NOT NULL DEFAULT '[]',
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'completed', 'handed_off', 'expired')),
				trigger_type VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sessions_flow ON sessions(flow_id);
			CREATE INDEX idx_sessions_status ON sessions(status);
			CREATE INDEX idx_sessions_updated_at ON sessions(updated_at);

			-- At most one active session per (flow, contact) pair.
			CREATE UNIQUE INDEX idx_sessions_active_pair
				ON sessions(flow_id, contact_id)
				WHERE status = 'active';
		`,
	}
}
