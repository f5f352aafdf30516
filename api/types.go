package api

import (
	"time"

	"github.com/snowflowhq/snowflow/flow"
)

// =============================================================================
// 连接校验类型
// =============================================================================

// ValidateConnectionRequest 代表画布上的一次连线校验请求。
// @Description 连线校验请求结构
type ValidateConnectionRequest struct {
	// 画布当前节点
	Nodes []flow.Node `json:"nodes" binding:"required"`
	// 画布当前边
	Edges []flow.Edge `json:"edges"`
	// 待校验的候选边
	Candidate flow.Edge `json:"candidate" binding:"required"`
}

// ValidateConnectionResponse 表示连线校验结果。
// @Description 连线校验响应结构
type ValidateConnectionResponse struct {
	// 是否允许建立连接
	Accepted bool `json:"accepted"`
	// 用户提示：接受时为提示语，拒绝时为引导语
	Message string `json:"message,omitempty"`
	// 提示语是否带风险标记
	Risky bool `json:"risky,omitempty"`
}

// AnnotateRequest 代表整图边注解请求。
// @Description 边注解请求结构
type AnnotateRequest struct {
	// 画布当前节点
	Nodes []flow.Node `json:"nodes" binding:"required"`
	// 画布当前边
	Edges []flow.Edge `json:"edges"`
}

// AnnotateResponse 表示边注解结果。
// @Description 边注解响应结构
type AnnotateResponse struct {
	// 注解后的边集合，风险边带 riskWarning 字段
	Edges []flow.Edge `json:"edges"`
	// 被标记为风险的边数量
	RiskyCount int `json:"risky_count"`
}

// PreflightRequest 代表运行前检查请求。
// @Description 预检请求结构
type PreflightRequest struct {
	// 完整流程定义
	Definition flow.Definition `json:"definition" binding:"required"`
	// 用户提示词（可为空，预保存模式）
	Prompt string `json:"prompt,omitempty"`
}

// PreflightResponse 表示运行前检查结果。
// @Description 预检响应结构
type PreflightResponse struct {
	// 无阻断性错误时为 true
	Valid bool `json:"valid"`
	// 阻断性错误
	Errors []flow.Finding `json:"errors"`
	// 非阻断性警告
	Warnings []flow.Finding `json:"warnings"`
	// 信息性结果
	Info []flow.Finding `json:"info"`
}

// =============================================================================
// 工作流存储类型
// =============================================================================

// SaveWorkflowRequest 代表保存工作流请求。
// @Description 保存工作流请求结构
type SaveWorkflowRequest struct {
	// 工作流 ID，为空表示新建
	ID string `json:"id,omitempty"`
	// 工作流名称
	Name string `json:"name" binding:"required"`
	// 描述
	Description string `json:"description,omitempty"`
	// 流程定义
	Definition flow.Definition `json:"definition" binding:"required"`
}

// WorkflowSummary 表示工作流列表项。
// @Description 工作流摘要结构
type WorkflowSummary struct {
	// 工作流 ID
	ID string `json:"id" example:"wf-a1b2c3d4"`
	// 名称
	Name string `json:"name" example:"retail-insights"`
	// 描述
	Description string `json:"description,omitempty"`
	// 版本号
	Version string `json:"version" example:"1"`
	// 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowDetail 表示完整的已保存工作流。
// @Description 工作流详情结构
type WorkflowDetail struct {
	WorkflowSummary
	// 完整流程定义
	Definition flow.Definition `json:"definition"`
	// 创建时间
	CreatedAt time.Time `json:"created_at"`
}

// TemplateSummary 表示流程模板列表项。
// @Description 模板摘要结构
type TemplateSummary struct {
	// 模板 ID
	ID string `json:"id" example:"tpl-a1b2c3d4"`
	// 名称
	Name string `json:"name" example:"single-agent"`
	// 描述
	Description string `json:"description,omitempty"`
	// 类别（query / migration / general）
	Category string `json:"category" example:"query"`
	// 流程形态（single / supervisor / router）
	Shape string `json:"shape" example:"single"`
}

// TemplateDetail 表示完整的流程模板。
// @Description 模板详情结构
type TemplateDetail struct {
	TemplateSummary
	// 模板流程定义
	Definition flow.Definition `json:"definition"`
}

// =============================================================================
// 运行类型
// =============================================================================

// RunFlowRequest 代表流程运行请求。
// @Description 流程运行请求结构
type RunFlowRequest struct {
	// 完整流程定义
	Definition flow.Definition `json:"definition" binding:"required"`
	// 用户提示词
	Prompt string `json:"prompt,omitempty"`
	// 关联的已保存工作流 ID（可选）
	WorkflowID string `json:"workflow_id,omitempty"`
}

// RunFlowResponse 表示阻塞式运行结果。
// @Description 流程运行响应结构
type RunFlowResponse struct {
	// 运行 ID
	RunID string `json:"run_id" example:"run-123"`
	// 运行状态（completed / failed）
	Status string `json:"status" example:"completed"`
	// 后端输出
	Output any `json:"output,omitempty"`
	// 错误信息
	Error string `json:"error,omitempty"`
	// 预检结果（仅当预检阻断运行时返回）
	Preflight *PreflightResponse `json:"preflight,omitempty"`
}
