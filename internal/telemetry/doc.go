// 版权所有 2025 SnowFlow Authors. 版权所有。

// Package telemetry 初始化 OpenTelemetry 的 trace 与 metric 上报。
//
// 通过 OTLP gRPC 导出到采集端。遥测默认关闭，开启后 HTTP 中间件
// 会为每次校验、预检和运行请求打出带 trace 上下文的 span。
package telemetry
