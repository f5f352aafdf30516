// 版权所有 2025 SnowFlow Authors. 版权所有。

// Package handlers 实现 SnowFlow 的 HTTP 接口层。
//
// 核心端点：
//   - POST /api/v1/flows/validate-connection — 单条连线的即时裁决
//   - POST /api/v1/flows/annotate            — 整图边注解
//   - POST /api/v1/flows/preflight           — 运行前整图预检
//   - POST /api/v1/run                       — 预检通过后转发执行（含 SSE / WebSocket 流式变体）
//   - /api/v1/flows, /api/v1/templates       — 工作流与模板的持久化 CRUD
//
// 所有响应走统一的 Response 信封，错误码到 HTTP 状态的映射见 common.go。
package handlers
