package common

const (
	RedisStreamPipelineCompleted = "sentiment.pipeline.completed"
)
