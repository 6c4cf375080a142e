package kafka

// Topic definitions for run lifecycle event streaming
const (
	// Crew run events
	TopicRunStarted  = "runs.started"
	TopicRunFinished = "runs.finished"

	// Task events
	TopicTaskFinished = "runs.tasks"

	// Knowledge base events
	TopicKnowledgePruned = "knowledge.pruned"
)
