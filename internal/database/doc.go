// 版权所有 2025 SnowFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 管理工作流元数据库的连接池。

存储层（internal/store）持有一个 PoolManager：池参数来自
DatabaseConfig，存活探测由 /ready 的健康检查按需触发，池内不跑
后台探活循环。模板种子写入这类多语句操作通过 WithTransaction
在单个事务内完成。

# 核心类型

  - PoolManager：应用池参数、提供 Ping/Close/Stats 与 WithTransaction。
  - PoolConfig：最大连接数、空闲连接数与连接生命周期。
  - PoolStats：暴露给 /ready 与运维排查的池快照。
*/
package database
