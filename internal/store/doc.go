// 版权所有 2025 SnowFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 store 提供工作流与流程模板的持久化层，基于 GORM 支持
SQLite、PostgreSQL 与 MySQL 三种数据库驱动。

# 概述

本包负责画布上保存的工作流定义与内置流程模板的存取。
工作流按租户隔离，删除采用软删除以便审计追溯；
模板以名称唯一，通过 SeedTemplates 幂等预置。

# 核心类型

  - Store：持久化入口，封装 gorm.DB 与连接池配置，
    提供工作流与模板的 CRUD 操作。
  - Workflow：已保存的工作流记录，含租户、版本与 JSON 定义。
  - Template：流程模板记录，按类别与形态（single/supervisor/router）组织。

# 错误语义

所有未找到、冲突与底层存储错误均映射为 types 包的标准错误码
（WORKFLOW_NOT_FOUND、WORKFLOW_CONFLICT、TEMPLATE_NOT_FOUND、STORE_ERROR），
便于 API 层统一转换为 HTTP 响应。
*/
package store
