// Copyright (c) SnowFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 SnowFlow 服务端程序入口。

# 概述

cmd/snowflow 是 SnowFlow 画布后端的可执行入口，提供连线校验、边注解、
运行前预检、工作流持久化与流程执行等 HTTP API，以及数据库迁移、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、结构化日志
（zap）、Prometheus 指标采集与 OpenTelemetry 链路追踪。

# 核心类型

  - Server           — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（数据库迁移）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、OTelTracing、CORS、RateLimiter（基于 IP）、
    Auth（X-API-Key / Bearer JWT）、TenantRateLimiter（按租户）
  - 预置模板：启动时幂等写入内置流程模板（查询流、路由流、迁移流）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 排空审计日志 →
    关闭缓存/存储 → 关闭遥测 → Wait
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
