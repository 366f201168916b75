package models

// AllPipelinesID 代表“全部管道”的虚拟管道ID
const AllPipelinesID = "All"

// Pipeline 自定义销售管道
type Pipeline struct {
	PipelineID   string `json:"pipeline_id" bson:"pipeline_id"`
	PipelineName string `json:"pipeline_name" bson:"pipeline_name"`
}

// PipelineStage 自定义管道中的阶段
type PipelineStage struct {
	StageID    string `json:"stage_id" bson:"stage_id"`
	PipelineID string `json:"pipeline_id" bson:"pipeline_id"`
	StageName  string `json:"stage_name" bson:"stage_name"`
	Position   int    `json:"position" bson:"position"`
}
