// Copyright (c) SnowFlow Authors.
// Licensed under the MIT License.

/*
Package flow 提供 SnowFlow 画布的图模型与连接校验子系统。

# 概述

flow 包实现了工作流画布的核心逻辑：节点/边图模型、连接校验规则引擎、
边风险标注与上游可达性搜索。所有判定逻辑均为纯函数，对图快照求值，
可在每次画布事件中同步调用。

# 核心类型

  - Graph / Node / Edge — 工作流图模型（删除节点时显式级联清理关联边）
  - NodeCategory        — 封闭的节点类别枚举
  - Ruleset             — 邻接规则表 + 提示表 + 拒绝引导语（注入式纯数据）
  - Validator           — 连接校验器 ValidateConnection / CheckGraph
  - Annotator           — 边风险标注器（含 (source, agent) 语义路径细化）
  - Preflight           — 执行前综合校验（结构、数据源、语义模型、提示词）
  - Definition          — JSON / YAML 序列化形态，导入时结构校验

# 主要能力

  - 规则表驱动：允许的连接关系是数据而非代码，可替换规则集进行测试
  - 风险分类：提示消息的警告前缀是唯一的风险信号（isRiskyHint 单点判定）
  - 上游可达性：沿入边 BFS 搜索语义模型祖先，带访问上限保证终止
  - 流装配：按 single / supervisor / router 形态自动连线（Assemble）
*/
package flow
