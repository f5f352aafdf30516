// 版权所有 2025 SnowFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 audit 提供工作流操作的审计日志能力，记录保存、删除、
连线拒绝、预检与运行等关键事件，支持查询与多后端存储。

# 概述

审计记录器采用异步写入模型：事件先进入内存队列，
由后台 worker 批量刷写到后端，避免阻塞请求路径。
队列满时丢弃并告警，而不是反压业务逻辑。

# 存储后端

  - MemoryBackend：内存环形存储，容量满时淘汰最旧记录，
    适合测试与单机部署。
  - MongoBackend：基于 MongoDB 的持久化后端，
    按租户、工作流与事件类型建索引，适合多实例部署与长期留存。

# 事件类型

workflow_saved / workflow_deleted / connection_rejected /
risky_edge_accepted / preflight_run / flow_run
*/
package audit
