// 版权所有 2025 SnowFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理工作流库的 Schema 版本。

迁移脚本按方言内嵌（postgres/mysql/sqlite 各一套），覆盖
workflows 与 templates 两张表。Migrator 只暴露 migrate 子命令
用到的动作：Up/Down/Reset/Goto/Force/Version/Status。
构建入口是 OpenFromDatabaseConfig（走服务配置的数据库段）与
OpenURL（显式驱动名加连接串）。
*/
package migration
