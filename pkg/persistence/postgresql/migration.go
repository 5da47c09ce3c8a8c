package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(50) NOT NULL,
				trigger_conditions JSONB NOT NULL DEFAULT '[]',
				trigger_schedule VARCHAR(255) NOT NULL DEFAULT '',
				actions JSONB NOT NULL DEFAULT '[]',
				variables JSONB,
				is_active BOOLEAN NOT NULL DEFAULT false,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type);
			CREATE INDEX idx_workflows_is_active ON workflows(is_active);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL,
				variables JSONB
			);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				workflow_name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_payload JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
				actions_executed INT NOT NULL DEFAULT 0,
				errors JSONB NOT NULL DEFAULT '[]',
				warnings JSONB NOT NULL DEFAULT '[]',
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_executed_at ON executions(executed_at);
		`,
	}
}
