// Copyright 2026 SnowFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 SnowFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试与集成测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue，
    支持超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON，简化测试数据构造

# 子包

  - testutil/mocks: Mock 实现，包括 Prober（目录探测器），
    支持按对象脚本化返回与错误注入
  - testutil/fixtures: 测试数据工厂，提供预置的画布流程定义
    （查询流、路由流、迁移流、非法流）

# 使用示例

	ctx := testutil.TestContext(t)
	prober := mocks.NewProber().WithObject("SALES.PUBLIC.ORDERS", flow.ObjectStatus{Exists: true, Accessible: true, Rows: 100})
	result := preflight.Check(ctx, fixtures.QueryFlow().Graph(), "total revenue?")
*/
package testutil
