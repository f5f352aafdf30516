// Copyright (c) SnowFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 SnowFlow 服务的全局共享类型定义。

# 概述

types 是服务最底层的公共包，不依赖任何内部包，为 flow、api、runner 等
上层模块提供统一的类型契约。跨包共享的错误码与 Context 传播工具均定义
于此，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、NodeID 标记

# 主要能力

  - Context 传播：WithTraceID / WithTenantID / WithUserID / WithRunID / WithRoles
  - 错误工具链：IsRetryable / GetErrorCode
*/
package types
